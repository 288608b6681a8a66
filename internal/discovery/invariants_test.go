package discovery

import (
	"strings"
	"testing"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

func classifiedMap(path, role string) models.Artifact {
	return models.Artifact{
		Path:           path,
		Kind:           models.KindMap,
		Classification: &models.Classification{Role: role, Confidence: 0.9},
	}
}

func findResult(t *testing.T, results []models.InvariantResult, id string) models.InvariantResult {
	t.Helper()
	for _, r := range results {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("invariant %s missing from results", id)
	return models.InvariantResult{}
}

func TestValidator_HealthyPackageIsEligible(t *testing.T) {
	artifacts := []models.Artifact{
		classifiedMap("index.ditamap", knowledge.RoleMain),
		classifiedMap("glossary.ditamap", knowledge.RoleGlossary),
		{Path: "intro.dita", Kind: models.KindTopic,
			Classification: &models.Classification{Role: knowledge.RoleContent}},
	}

	v := NewValidator(models.SeverityWarning)
	results, eligible, err := v.Validate(artifacts, models.Graph{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !eligible {
		t.Error("healthy package reported ineligible")
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("invariant %s failed on a healthy package: %s", r.ID, r.Details)
		}
	}
	if len(results) != 5 {
		t.Errorf("expected 5 invariant results, got %d", len(results))
	}
}

func TestValidator_RoleCountChecks(t *testing.T) {
	tests := []struct {
		name         string
		artifacts    []models.Artifact
		failedID     string
		wantEligible bool
	}{
		{
			name: "no main map",
			artifacts: []models.Artifact{
				classifiedMap("parts.ditamap", knowledge.RoleContent),
			},
			failedID:     InvariantExactlyOneMain,
			wantEligible: false,
		},
		{
			name: "two main maps",
			artifacts: []models.Artifact{
				classifiedMap("index.ditamap", knowledge.RoleMain),
				classifiedMap("Main.ditamap", knowledge.RoleMain),
			},
			failedID:     InvariantExactlyOneMain,
			wantEligible: false,
		},
		{
			name: "two abstract maps",
			artifacts: []models.Artifact{
				classifiedMap("index.ditamap", knowledge.RoleMain),
				classifiedMap("abstract.ditamap", knowledge.RoleAbstract),
				classifiedMap("overview.ditamap", knowledge.RoleAbstract),
			},
			failedID:     InvariantAtMostOneAbstract,
			wantEligible: false,
		},
		{
			name: "two glossary maps",
			artifacts: []models.Artifact{
				classifiedMap("index.ditamap", knowledge.RoleMain),
				classifiedMap("glossary.ditamap", knowledge.RoleGlossary),
				classifiedMap("terms.ditamap", knowledge.RoleGlossary),
			},
			failedID:     InvariantAtMostOneGlossary,
			wantEligible: false,
		},
	}

	v := NewValidator(models.SeverityWarning)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, eligible, err := v.Validate(tt.artifacts, models.Graph{})
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if eligible != tt.wantEligible {
				t.Errorf("eligible = %v, want %v", eligible, tt.wantEligible)
			}
			r := findResult(t, results, tt.failedID)
			if r.Passed {
				t.Errorf("invariant %s passed, want failed", tt.failedID)
			}
			if r.Severity != models.SeverityBlocking {
				t.Errorf("invariant %s severity = %s, want BLOCKING", tt.failedID, r.Severity)
			}
		})
	}
}

func TestValidator_TopicRolesDoNotCountTowardMapInvariants(t *testing.T) {
	artifacts := []models.Artifact{
		classifiedMap("index.ditamap", knowledge.RoleMain),
		{Path: "terms.dita", Kind: models.KindTopic,
			Classification: &models.Classification{Role: knowledge.RoleGlossary}},
		{Path: "more-terms.dita", Kind: models.KindTopic,
			Classification: &models.Classification{Role: knowledge.RoleGlossary}},
	}

	v := NewValidator(models.SeverityWarning)
	results, eligible, err := v.Validate(artifacts, models.Graph{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !eligible {
		t.Error("glossary topics must not trip the glossary map invariant")
	}
	if r := findResult(t, results, InvariantAtMostOneGlossary); !r.Passed {
		t.Errorf("at_most_one_glossary failed on topic roles: %s", r.Details)
	}
}

func TestValidator_UnknownMapsSeverityIsConfigurable(t *testing.T) {
	artifacts := []models.Artifact{
		classifiedMap("index.ditamap", knowledge.RoleMain),
		classifiedMap("mystery.ditamap", knowledge.RoleUnknown),
	}

	warn := NewValidator(models.SeverityWarning)
	results, eligible, err := warn.Validate(artifacts, models.Graph{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !eligible {
		t.Error("unknown map at WARNING severity must not block")
	}
	if r := findResult(t, results, InvariantNoUnknownMaps); r.Passed {
		t.Error("no_unknown_maps passed despite an UNKNOWN map")
	}

	block := NewValidator(models.SeverityBlocking)
	_, eligible, err = block.Validate(artifacts, models.Graph{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if eligible {
		t.Error("unknown map at BLOCKING severity must gate eligibility")
	}
}

func TestValidator_DanglingReferencesWarnOnly(t *testing.T) {
	artifacts := []models.Artifact{
		classifiedMap("index.ditamap", knowledge.RoleMain),
	}
	graph := models.Graph{
		Dangling: []models.Edge{{Source: "index.ditamap", Target: "Main.ditamap", Type: "mapref"}},
	}

	v := NewValidator(models.SeverityWarning)
	results, eligible, err := v.Validate(artifacts, graph)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !eligible {
		t.Error("dangling references must never block")
	}
	r := findResult(t, results, InvariantNoDanglingReferences)
	if r.Passed {
		t.Error("no_dangling_references passed despite a dangling edge")
	}
	if r.Severity != models.SeverityWarning {
		t.Errorf("severity = %s, want WARNING", r.Severity)
	}
	if !strings.Contains(r.Details, "index.ditamap -> Main.ditamap") {
		t.Errorf("details do not name the dangling edge: %s", r.Details)
	}
}

func TestValidator_CorruptInventoryIsAnError(t *testing.T) {
	artifacts := []models.Artifact{
		{Path: "thing.dita", Kind: models.KindTopic},
		{Path: "thing.dita", Kind: models.KindMap},
	}

	v := NewValidator(models.SeverityWarning)
	_, _, err := v.Validate(artifacts, models.Graph{})
	if err == nil {
		t.Fatal("expected an error for a path recorded with two kinds")
	}
}
