package execution

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ditapack/pkg/models"
)

// wrapMapHandler creates a new map whose only child is a mapref to an
// existing map, giving a bare map a titled entry point.
type wrapMapHandler struct{}

func (h *wrapMapHandler) ID() string { return "semantic.wrap_map" }

func (h *wrapMapHandler) Execute(env *Env, action models.Action) models.ExecutionActionResult {
	sourceMap, ok := action.Param("source_map")
	if !ok {
		return failed(action, h.ID(), env.DryRun, "missing required parameter source_map", nil)
	}
	title, ok := action.Param("title")
	if !ok {
		return failed(action, h.ID(), env.DryRun, "missing required parameter title", nil)
	}

	sourceAbs, err := env.Target.Resolve(sourceMap)
	if err != nil {
		return failed(action, h.ID(), env.DryRun, "source map path refused", err)
	}
	targetAbs, err := env.Target.Resolve(action.Target)
	if err != nil {
		return failed(action, h.ID(), env.DryRun, "target path refused", err)
	}

	if env.DryRun {
		return skipped(action, h.ID(), true,
			fmt.Sprintf("simulated: would wrap %s in %s", sourceMap, action.Target), nil)
	}

	if _, err := os.Stat(sourceAbs); err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("wrapped map %s is not present", sourceMap), err)
	}

	content := wrapperMapDocument(title, sourceMap)

	if existing, err := os.ReadFile(targetAbs); err == nil && bytes.Equal(existing, content) {
		return skipped(action, h.ID(), false,
			fmt.Sprintf("wrapper %s already present with identical content", action.Target), nil)
	}

	decision, err := env.Policy.CheckWrite(targetAbs)
	if err != nil {
		return failed(action, h.ID(), false, "write refused by policy", err)
	}
	if decision == WriteSkip {
		return skipped(action, h.ID(), false,
			fmt.Sprintf("target %s exists, overwrite policy skips it", action.Target), nil)
	}

	if err := EnsureParentWritable(filepath.Dir(targetAbs)); err != nil {
		return failed(action, h.ID(), false, "preparing target directory", err)
	}
	if err := os.WriteFile(targetAbs, content, 0o644); err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("writing %s", action.Target), err)
	}

	return succeeded(action, h.ID(),
		fmt.Sprintf("wrapped %s in %s", sourceMap, action.Target),
		map[string]string{"wrapped_map": sourceMap})
}

func wrapperMapDocument(title, href string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<map>\n")
	b.WriteString("  <title>")
	_ = xml.EscapeText(&b, []byte(title))
	b.WriteString("</title>\n")
	b.WriteString(`  <mapref href="`)
	_ = xml.EscapeText(&b, []byte(href))
	b.WriteString("\"/>\n")
	b.WriteString("</map>\n")
	return b.Bytes()
}

// injectTopicrefHandler appends a topicref to an existing map. The target
// map was produced by an earlier copy action; injection is idempotent on
// the href.
type injectTopicrefHandler struct{}

func (h *injectTopicrefHandler) ID() string { return "semantic.inject_topicref" }

func (h *injectTopicrefHandler) Execute(env *Env, action models.Action) models.ExecutionActionResult {
	href, ok := action.Param("href")
	if !ok {
		return failed(action, h.ID(), env.DryRun, "missing required parameter href", nil)
	}
	targetRel, ok := action.Param("target_path")
	if !ok {
		targetRel = action.Target
	}

	targetAbs, err := env.Target.Resolve(targetRel)
	if err != nil {
		return failed(action, h.ID(), env.DryRun, "target path refused", err)
	}

	if env.DryRun {
		return skipped(action, h.ID(), true,
			fmt.Sprintf("simulated: would inject topicref href=%s into %s", href, targetRel), nil)
	}

	content, err := os.ReadFile(targetAbs)
	if err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("target map %s is not readable", targetRel), err)
	}

	rootName, exists, err := inspectMapForHref(content, href)
	if err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("invalid XML in %s", targetRel), err)
	}
	if exists {
		return skipped(action, h.ID(), false,
			fmt.Sprintf("topicref with href %s already present in %s", href, targetRel), nil)
	}

	decision, err := env.Policy.CheckWrite(targetAbs)
	if err != nil {
		return failed(action, h.ID(), false, "write refused by policy", err)
	}
	if decision == WriteSkip {
		return skipped(action, h.ID(), false,
			fmt.Sprintf("overwrite policy skips modifying %s", targetRel), nil)
	}

	updated, err := injectBeforeClose(content, rootName, href)
	if err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("injecting into %s", targetRel), err)
	}
	if err := os.WriteFile(targetAbs, updated, 0o644); err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("writing %s", targetRel), err)
	}

	return succeeded(action, h.ID(),
		fmt.Sprintf("injected topicref href=%s into %s", href, targetRel),
		map[string]string{"target_map": targetRel, "href": href})
}

// inspectMapForHref parses the document, returning its root element name
// and whether a topicref with the given href already exists.
func inspectMapForHref(content []byte, href string) (string, bool, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root string
	exists := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", false, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if root == "" {
			root = start.Name.Local
		}
		if start.Name.Local == "topicref" {
			for _, attr := range start.Attr {
				if attr.Name.Local == "href" && attr.Value == href {
					exists = true
				}
			}
		}
	}
	if root == "" {
		return "", false, fmt.Errorf("document has no root element")
	}
	return root, exists, nil
}

// injectBeforeClose inserts a topicref element immediately before the root
// closing tag, preserving the rest of the document byte for byte.
func injectBeforeClose(content []byte, rootName, href string) ([]byte, error) {
	closing := []byte("</" + rootName + ">")
	idx := bytes.LastIndex(content, closing)
	if idx < 0 {
		return nil, fmt.Errorf("closing tag %s not found", closing)
	}

	element := []byte(`  <topicref href="` + escapeAttr(href) + "\"/>\n")
	var b bytes.Buffer
	b.Grow(len(content) + len(element))
	b.Write(content[:idx])
	b.Write(element)
	b.Write(content[idx:])
	return b.Bytes(), nil
}

func escapeAttr(v string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(v))
	return b.String()
}

// extractGlossaryHandler is the one read-only semantic handler: it locates
// the glossary container in a definition map by navtitle and inventories
// the nested topicref hrefs into the result data. No mutation, not even in
// apply mode.
type extractGlossaryHandler struct{}

func (h *extractGlossaryHandler) ID() string { return "semantic.extract_glossary" }

func (h *extractGlossaryHandler) Execute(env *Env, action models.Action) models.ExecutionActionResult {
	mapRel, ok := action.Param("definition_map")
	if !ok {
		return failed(action, h.ID(), env.DryRun, "missing required parameter definition_map", nil)
	}
	navtitle, ok := action.Param("definition_navtitle")
	if !ok {
		return failed(action, h.ID(), env.DryRun, "missing required parameter definition_navtitle", nil)
	}

	mapAbs, err := env.Target.Resolve(mapRel)
	if err != nil {
		return failed(action, h.ID(), env.DryRun, "definition map path refused", err)
	}

	if env.DryRun {
		return skipped(action, h.ID(), true,
			fmt.Sprintf("simulated: would extract glossary references from %s", mapRel),
			map[string]string{"glossary_hrefs": ""})
	}

	content, err := os.ReadFile(mapAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return skipped(action, h.ID(), false,
				fmt.Sprintf("definition map %s not present", mapRel),
				map[string]string{"glossary_hrefs": ""})
		}
		return failed(action, h.ID(), false, fmt.Sprintf("reading %s", mapRel), err)
	}

	hrefs, err := extractGlossaryHrefs(content, navtitle)
	if err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("invalid XML in %s", mapRel), err)
	}

	return succeeded(action, h.ID(),
		fmt.Sprintf("extracted %d glossary reference(s) from %s", len(hrefs), mapRel),
		map[string]string{
			"glossary_hrefs": strings.Join(hrefs, "\n"),
			"count":          strconv.Itoa(len(hrefs)),
		})
}

// extractGlossaryHrefs walks the document once, tracking topicref nesting.
// A topicref whose direct navtitle child matches the wanted title marks a
// glossary container; hrefs of topicrefs nested anywhere under it are
// collected in document order.
func extractGlossaryHrefs(content []byte, navtitle string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var stack []string
	var hrefs []string
	matchedDepth := -1
	var inNavtitle bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "topicref" && matchedDepth >= 0 {
				// Inside a matched container, every nested topicref href
				// is part of the glossary.
				for _, attr := range t.Attr {
					if attr.Name.Local == "href" && attr.Value != "" {
						hrefs = append(hrefs, attr.Value)
					}
				}
			}
			// The navtitle may sit directly under the topicref or inside
			// its topicmeta.
			if t.Name.Local == "navtitle" && len(stack) > 0 {
				parent := stack[len(stack)-1]
				if parent == "topicref" ||
					(parent == "topicmeta" && len(stack) > 1 && stack[len(stack)-2] == "topicref") {
					inNavtitle = true
				}
			}
			stack = append(stack, t.Name.Local)
		case xml.CharData:
			if inNavtitle && matchedDepth < 0 && strings.TrimSpace(string(t)) == navtitle {
				// The nearest enclosing topicref is the container.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == "topicref" {
						matchedDepth = i
						break
					}
				}
			}
		case xml.EndElement:
			if t.Name.Local == "navtitle" {
				inNavtitle = false
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if matchedDepth >= 0 && len(stack) <= matchedDepth {
				matchedDepth = -1
			}
		}
	}
	return hrefs, nil
}
