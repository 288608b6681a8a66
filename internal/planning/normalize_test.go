package planning

import (
	"errors"
	"strings"
	"testing"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

func contractArtifact(path string, kind models.ArtifactKind, role string) models.Artifact {
	a := models.Artifact{Path: path, Kind: kind}
	if role != "" {
		a.Classification = &models.Classification{Role: role, Confidence: 0.9}
	}
	return a
}

func validContract() *models.DiscoveryContract {
	return &models.DiscoveryContract{
		ContractVersion: models.DiscoveryContractVersion,
		Artifacts: []models.Artifact{
			contractArtifact("index.ditamap", models.KindMap, knowledge.RoleMain),
			contractArtifact("topics/intro.dita", models.KindTopic, knowledge.RoleContent),
			contractArtifact("media/logo.png", models.KindMedia, ""),
		},
		Relationships: []models.Edge{
			{Source: "index.ditamap", Target: "topics/intro.dita", Type: "topicref"},
		},
		Eligible: true,
	}
}

func TestCollapseClassification(t *testing.T) {
	tests := []struct {
		role string
		want string
	}{
		{knowledge.RoleMain, knowledge.RoleMain},
		{"MAIN_MAP", knowledge.RoleMain},
		{knowledge.RoleGlossary, knowledge.RoleGlossary},
		{knowledge.RoleAbstract, ""},
		{knowledge.RoleContainer, ""},
		{knowledge.RoleContent, ""},
		{knowledge.RoleUnknown, ""},
		{"main", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := collapseClassification(tt.role); got != tt.want {
			t.Errorf("collapseClassification(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestNormalizeDiscovery_ValidContract(t *testing.T) {
	input, err := NormalizeDiscovery(validContract())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if input.ContractVersion != models.PlanningInputVersion {
		t.Errorf("version = %s, want %s", input.ContractVersion, models.PlanningInputVersion)
	}
	if input.MainMap != "index.ditamap" {
		t.Errorf("main map = %s, want index.ditamap", input.MainMap)
	}
	if len(input.Artifacts) != 3 {
		t.Errorf("expected 3 artifacts, got %d", len(input.Artifacts))
	}
	if len(input.Relationships) != 1 {
		t.Errorf("expected 1 relationship, got %d", len(input.Relationships))
	}
	// Non-planning roles collapse to empty.
	for _, a := range input.Artifacts {
		if a.Path == "topics/intro.dita" && a.Classification != "" {
			t.Errorf("CONTENT role survived collapse: %q", a.Classification)
		}
	}
}

func TestNormalizeDiscovery_Violations(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.DiscoveryContract)
		wantField string
	}{
		{
			name:      "version mismatch",
			mutate:    func(c *models.DiscoveryContract) { c.ContractVersion = "discovery.v2" },
			wantField: "contract_version",
		},
		{
			name:      "empty artifact path",
			mutate:    func(c *models.DiscoveryContract) { c.Artifacts[1].Path = "" },
			wantField: "artifacts[1].path",
		},
		{
			name:      "invalid artifact type",
			mutate:    func(c *models.DiscoveryContract) { c.Artifacts[1].Kind = "document" },
			wantField: "artifacts[1].artifact_type",
		},
		{
			name: "duplicate path",
			mutate: func(c *models.DiscoveryContract) {
				c.Artifacts = append(c.Artifacts, contractArtifact("index.ditamap", models.KindMap, ""))
			},
			wantField: "artifacts[3].path",
		},
		{
			name: "no main map",
			mutate: func(c *models.DiscoveryContract) {
				c.Artifacts[0].Classification = nil
			},
			wantField: "artifacts",
		},
		{
			name: "two main maps",
			mutate: func(c *models.DiscoveryContract) {
				c.Artifacts = append(c.Artifacts, contractArtifact("Main.ditamap", models.KindMap, knowledge.RoleMain))
			},
			wantField: "artifacts",
		},
		{
			name: "relationship names unknown artifact",
			mutate: func(c *models.DiscoveryContract) {
				c.Relationships[0].Target = "ghost.dita"
			},
			wantField: "relationships[0].target",
		},
		{
			name: "relationship with empty endpoint",
			mutate: func(c *models.DiscoveryContract) {
				c.Relationships[0].Source = ""
			},
			wantField: "relationships[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := validContract()
			tt.mutate(contract)

			_, err := NormalizeDiscovery(contract)
			if err == nil {
				t.Fatal("expected a contract violation")
			}
			var cerr *ContractError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *ContractError, got %T: %v", err, err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", cerr.Field, tt.wantField)
			}
		})
	}
}

func TestNormalizeDiscovery_NilContract(t *testing.T) {
	_, err := NormalizeDiscovery(nil)
	if err == nil {
		t.Fatal("expected an error for nil contract")
	}
	if !strings.Contains(err.Error(), "nil") {
		t.Errorf("unexpected error: %v", err)
	}
}
