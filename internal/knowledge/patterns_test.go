package knowledge

import (
	"strings"
	"testing"

	"ditapack/pkg/models"
)

func TestLoadLibrary_EmbeddedLibraryIsValid(t *testing.T) {
	lib, err := LoadLibrary()
	if err != nil {
		t.Fatalf("loading embedded library: %v", err)
	}
	if len(lib.Patterns) == 0 {
		t.Fatal("embedded library has no patterns")
	}

	maps := lib.ForKind(models.KindMap)
	topics := lib.ForKind(models.KindTopic)
	if len(maps) == 0 || len(topics) == 0 {
		t.Fatalf("expected patterns for both kinds, got %d map and %d topic", len(maps), len(topics))
	}
}

func TestLoadLibrary_ContainsCorePatterns(t *testing.T) {
	lib, err := LoadLibrary()
	if err != nil {
		t.Fatalf("loading embedded library: %v", err)
	}

	want := map[string]struct {
		role       string
		confidence float64
	}{
		"main_map_by_index":      {RoleMain, 0.9},
		"glossary_topic_by_root": {RoleGlossary, 1.0},
	}

	found := make(map[string]Pattern)
	for _, p := range lib.Patterns {
		found[p.ID] = p
	}

	for id, expect := range want {
		p, ok := found[id]
		if !ok {
			t.Errorf("pattern %s missing from library", id)
			continue
		}
		if p.Asserts.Role != expect.role {
			t.Errorf("pattern %s asserts role %s, want %s", id, p.Asserts.Role, expect.role)
		}
		if p.Asserts.Confidence != expect.confidence {
			t.Errorf("pattern %s confidence %v, want %v", id, p.Asserts.Confidence, expect.confidence)
		}
	}
}

func TestLoadLibrary_ContainerPatternExcludesTopicrefs(t *testing.T) {
	lib, err := LoadLibrary()
	if err != nil {
		t.Fatalf("loading embedded library: %v", err)
	}

	for _, p := range lib.Patterns {
		if p.ID != "container_map_by_structure" {
			continue
		}
		if len(p.Signals.Excludes) != 1 || p.Signals.Excludes[0].Element != "topicref" {
			t.Fatalf("container pattern excludes = %+v, want topicref", p.Signals.Excludes)
		}
		return
	}
	t.Fatal("container_map_by_structure missing from library")
}

func TestParseLibrary_Validation(t *testing.T) {
	valid := `
version: 1
patterns:
  - id: map_by_name
    applies_to: map
    signals:
      filename: {equals: index.ditamap}
    asserts: {role: MAIN, confidence: 0.9}
    rationale: ["named index map"]
  - id: map_fallback
    applies_to: map
    signals: {fallback: true}
    asserts: {role: UNKNOWN, confidence: 0.05}
    rationale: ["nothing matched"]
  - id: topic_by_root
    applies_to: topic
    signals:
      root_element: {equals: concept}
    asserts: {role: CONTENT, confidence: 0.7}
    rationale: ["concept root"]
  - id: topic_fallback
    applies_to: topic
    signals: {fallback: true}
    asserts: {role: UNKNOWN, confidence: 0.05}
    rationale: ["nothing matched"]
`
	if _, err := ParseLibrary([]byte(valid)); err != nil {
		t.Fatalf("valid library rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "duplicate pattern id",
			mutate:  func(s string) string { return strings.Replace(s, "id: topic_by_root", "id: map_by_name", 1) },
			wantErr: "duplicate pattern id",
		},
		{
			name:    "second fallback for a kind",
			mutate:  func(s string) string { return strings.Replace(s, "root_element: {equals: concept}", "fallback: true", 1) },
			wantErr: "exactly one fallback",
		},
		{
			name:    "fallback confidence not below non-fallback",
			mutate:  func(s string) string { return strings.Replace(s, "role: CONTENT, confidence: 0.7", "role: CONTENT, confidence: 0.05", 1) },
			wantErr: "strictly below",
		},
		{
			name:    "unknown applies_to",
			mutate:  func(s string) string { return strings.Replace(s, "applies_to: topic\n    signals:\n      root_element", "applies_to: media\n    signals:\n      root_element", 1) },
			wantErr: "applies_to",
		},
		{
			name:    "missing rationale",
			mutate:  func(s string) string { return strings.Replace(s, `rationale: ["concept root"]`, "rationale: []", 1) },
			wantErr: "rationale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLibrary([]byte(tt.mutate(valid)))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLibrary_SortedIDsAreUniqueAndOrdered(t *testing.T) {
	lib, err := LoadLibrary()
	if err != nil {
		t.Fatalf("loading embedded library: %v", err)
	}

	ids := lib.SortedIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("ids not strictly increasing at %d: %s >= %s", i, ids[i-1], ids[i])
		}
	}
}
