package execution

import (
	"strings"
	"testing"

	"ditapack/pkg/models"
)

const mainMapFixture = `<?xml version="1.0" encoding="UTF-8"?>
<map>
  <title>Guide</title>
  <topicref href="topics/intro.dita"/>
</map>
`

func injectAction(target, href string) models.Action {
	return models.Action{
		ID:     "glossary-0001",
		Type:   models.ActionInjectTopicref,
		Target: target,
		Parameters: map[string]string{
			"target_path": target,
			"href":        href,
		},
	}
}

func TestInjectTopicrefHandler_AppendsBeforeClosingTag(t *testing.T) {
	env := testEnv(t, models.OverwriteReplace, false)
	writeSandboxFile(t, env.Target, "out.ditamap", mainMapFixture)

	h := &injectTopicrefHandler{}
	result := h.Execute(env, injectAction("out.ditamap", "topics/terms.dita"))
	if result.Status != models.StatusSucceeded {
		t.Fatalf("status = %s (%s), want succeeded", result.Status, result.Message)
	}

	got := readSandboxFile(t, env.Target, "out.ditamap")
	if !strings.Contains(got, `<topicref href="topics/terms.dita"/>`) {
		t.Errorf("injected topicref missing:\n%s", got)
	}
	if !strings.HasSuffix(strings.TrimSpace(got), "</map>") {
		t.Errorf("document no longer ends with the root closing tag:\n%s", got)
	}
	if !strings.Contains(got, `<topicref href="topics/intro.dita"/>`) {
		t.Errorf("existing content disturbed:\n%s", got)
	}
	idx := strings.Index(got, "topics/terms.dita")
	closeIdx := strings.LastIndex(got, "</map>")
	if idx > closeIdx {
		t.Error("topicref injected after the closing tag")
	}
}

func TestInjectTopicrefHandler_ExistingHrefSkips(t *testing.T) {
	env := testEnv(t, models.OverwriteReplace, false)
	writeSandboxFile(t, env.Target, "out.ditamap", mainMapFixture)

	h := &injectTopicrefHandler{}
	first := h.Execute(env, injectAction("out.ditamap", "topics/terms.dita"))
	if first.Status != models.StatusSucceeded {
		t.Fatalf("first injection: %s (%s)", first.Status, first.Message)
	}
	after := readSandboxFile(t, env.Target, "out.ditamap")

	second := h.Execute(env, injectAction("out.ditamap", "topics/terms.dita"))
	if second.Status != models.StatusSkipped {
		t.Fatalf("second injection status = %s, want skipped", second.Status)
	}
	if got := readSandboxFile(t, env.Target, "out.ditamap"); got != after {
		t.Error("idempotent rerun changed the document")
	}
}

func TestInjectTopicrefHandler_EscapesHref(t *testing.T) {
	env := testEnv(t, models.OverwriteReplace, false)
	writeSandboxFile(t, env.Target, "out.ditamap", mainMapFixture)

	h := &injectTopicrefHandler{}
	result := h.Execute(env, injectAction("out.ditamap", `topics/a&b.dita`))
	if result.Status != models.StatusSucceeded {
		t.Fatalf("status = %s (%s)", result.Status, result.Message)
	}
	got := readSandboxFile(t, env.Target, "out.ditamap")
	if !strings.Contains(got, "topics/a&amp;b.dita") {
		t.Errorf("href not escaped:\n%s", got)
	}
}

func TestInjectTopicrefHandler_DryRunMutatesNothing(t *testing.T) {
	env := testEnv(t, models.OverwriteReplace, true)
	writeSandboxFile(t, env.Target, "out.ditamap", mainMapFixture)

	h := &injectTopicrefHandler{}
	result := h.Execute(env, injectAction("out.ditamap", "topics/terms.dita"))
	if result.Status != models.StatusSkipped || !result.DryRun {
		t.Fatalf("dry run result = %+v, want skipped dry_run", result)
	}
	if got := readSandboxFile(t, env.Target, "out.ditamap"); got != mainMapFixture {
		t.Error("dry run modified the target map")
	}
}

func TestInjectTopicrefHandler_MissingTargetFails(t *testing.T) {
	env := testEnv(t, models.OverwriteReplace, false)

	h := &injectTopicrefHandler{}
	result := h.Execute(env, injectAction("ghost.ditamap", "topics/terms.dita"))
	if result.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if result.FailureType != models.FailureHandler {
		t.Errorf("failure type = %s, want handler_error", result.FailureType)
	}
}

func TestInjectTopicrefHandler_MalformedTargetFails(t *testing.T) {
	env := testEnv(t, models.OverwriteReplace, false)
	writeSandboxFile(t, env.Target, "broken.ditamap", "<map><title>unterminated")

	h := &injectTopicrefHandler{}
	result := h.Execute(env, injectAction("broken.ditamap", "topics/terms.dita"))
	if result.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed for malformed XML", result.Status)
	}
}

func TestWrapMapHandler(t *testing.T) {
	env := testEnv(t, models.OverwriteDeny, false)
	writeSandboxFile(t, env.Target, "parts.ditamap", "<map><topicref href=\"a.dita\"/></map>")

	action := models.Action{
		ID:     "wrap-0001",
		Type:   models.ActionWrapMap,
		Target: "wrapper.ditamap",
		Parameters: map[string]string{
			"source_map": "parts.ditamap",
			"title":      "Parts & Pieces",
		},
	}

	h := &wrapMapHandler{}
	result := h.Execute(env, action)
	if result.Status != models.StatusSucceeded {
		t.Fatalf("status = %s (%s), want succeeded", result.Status, result.Message)
	}

	got := readSandboxFile(t, env.Target, "wrapper.ditamap")
	if !strings.Contains(got, "<title>Parts &amp; Pieces</title>") {
		t.Errorf("title missing or unescaped:\n%s", got)
	}
	if !strings.Contains(got, `<mapref href="parts.ditamap"/>`) {
		t.Errorf("mapref missing:\n%s", got)
	}

	// Identical rerun is a no-op.
	rerun := h.Execute(env, action)
	if rerun.Status != models.StatusSkipped {
		t.Fatalf("rerun status = %s (%s), want skipped", rerun.Status, rerun.Message)
	}
}

func TestWrapMapHandler_MissingWrappedMapFails(t *testing.T) {
	env := testEnv(t, models.OverwriteDeny, false)

	h := &wrapMapHandler{}
	result := h.Execute(env, models.Action{
		ID: "wrap-0001", Type: models.ActionWrapMap, Target: "wrapper.ditamap",
		Parameters: map[string]string{"source_map": "ghost.ditamap", "title": "Ghost"},
	})
	if result.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
}

const glossaryMapFixture = `<?xml version="1.0" encoding="UTF-8"?>
<map>
  <title>Definitions</title>
  <topicref href="other.dita"/>
  <topicref>
    <topicmeta><navtitle>Glossary</navtitle></topicmeta>
    <topicref href="terms/alpha.dita"/>
    <topicref>
      <topicref href="terms/beta.dita"/>
    </topicref>
  </topicref>
  <topicref href="after.dita"/>
</map>
`

func TestExtractGlossaryHandler(t *testing.T) {
	env := testEnv(t, models.OverwriteDeny, false)
	writeSandboxFile(t, env.Target, "glossary.ditamap", glossaryMapFixture)

	action := models.Action{
		ID:     "glossary-0001",
		Type:   models.ActionExtractGlossary,
		Target: "glossary.ditamap",
		Parameters: map[string]string{
			"definition_map":      "glossary.ditamap",
			"definition_navtitle": "Glossary",
		},
	}

	h := &extractGlossaryHandler{}
	result := h.Execute(env, action)
	if result.Status != models.StatusSucceeded {
		t.Fatalf("status = %s (%s), want succeeded", result.Status, result.Message)
	}

	hrefs := strings.Split(result.Data["glossary_hrefs"], "\n")
	want := []string{"terms/alpha.dita", "terms/beta.dita"}
	if len(hrefs) != len(want) {
		t.Fatalf("extracted hrefs = %v, want %v", hrefs, want)
	}
	for i := range want {
		if hrefs[i] != want[i] {
			t.Errorf("hrefs[%d] = %s, want %s", i, hrefs[i], want[i])
		}
	}
	if result.Data["count"] != "2" {
		t.Errorf("count = %s, want 2", result.Data["count"])
	}

	// Read-only: the map is untouched.
	if got := readSandboxFile(t, env.Target, "glossary.ditamap"); got != glossaryMapFixture {
		t.Error("extraction modified the definition map")
	}
}

func TestExtractGlossaryHandler_NoMatchingNavtitle(t *testing.T) {
	env := testEnv(t, models.OverwriteDeny, false)
	writeSandboxFile(t, env.Target, "glossary.ditamap", glossaryMapFixture)

	h := &extractGlossaryHandler{}
	result := h.Execute(env, models.Action{
		ID: "glossary-0001", Type: models.ActionExtractGlossary, Target: "glossary.ditamap",
		Parameters: map[string]string{
			"definition_map":      "glossary.ditamap",
			"definition_navtitle": "Index",
		},
	})
	if result.Status != models.StatusSucceeded {
		t.Fatalf("status = %s (%s)", result.Status, result.Message)
	}
	if result.Data["count"] != "0" {
		t.Errorf("count = %s, want 0 for an absent container", result.Data["count"])
	}
}

func TestExtractGlossaryHandler_MissingMapSkips(t *testing.T) {
	env := testEnv(t, models.OverwriteDeny, false)

	h := &extractGlossaryHandler{}
	result := h.Execute(env, models.Action{
		ID: "glossary-0001", Type: models.ActionExtractGlossary, Target: "ghost.ditamap",
		Parameters: map[string]string{
			"definition_map":      "ghost.ditamap",
			"definition_navtitle": "Glossary",
		},
	})
	if result.Status != models.StatusSkipped {
		t.Fatalf("status = %s, want skipped for a missing definition map", result.Status)
	}
}
