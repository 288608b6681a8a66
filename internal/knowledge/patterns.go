package knowledge

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"ditapack/pkg/models"
)

//go:embed known_patterns.yaml
var knownPatternsYAML []byte

// StringMatch is an equality predicate over a single metadata field.
type StringMatch struct {
	Equals string `yaml:"equals"`
}

// ContainsSignal requires the presence of at least one element with the
// given local name in the artifact.
type ContainsSignal struct {
	Element string `yaml:"element"`
}

// Signals is the conjunction of predicates a pattern declares. All declared
// signals must hold for the pattern to match; a missing signal is a
// non-match, never an error. Excludes inverts the presence test: the named
// element must be absent. Fallback patterns carry no other signals and
// fire only when nothing else matched.
type Signals struct {
	Fallback    bool             `yaml:"fallback,omitempty"`
	Filename    *StringMatch     `yaml:"filename,omitempty"`
	RootElement *StringMatch     `yaml:"root_element,omitempty"`
	Contains    []ContainsSignal `yaml:"contains,omitempty"`
	Excludes    []ContainsSignal `yaml:"excludes,omitempty"`
}

// Empty reports whether no concrete predicate is declared.
func (s Signals) Empty() bool {
	return s.Filename == nil && s.RootElement == nil && len(s.Contains) == 0 && len(s.Excludes) == 0
}

// Asserts is the role a matching pattern claims for the artifact, with its
// confidence.
type Asserts struct {
	Role       string  `yaml:"role"`
	Confidence float64 `yaml:"confidence"`
}

// Pattern is one declarative classification rule. Pattern IDs are globally
// stable and never reused for a different meaning. Patterns are pure data,
// loaded once and read-only for the run.
type Pattern struct {
	ID        string              `yaml:"id"`
	AppliesTo models.ArtifactKind `yaml:"applies_to"`
	Signals   Signals             `yaml:"signals"`
	Asserts   Asserts             `yaml:"asserts"`
	Rationale []string            `yaml:"rationale"`
}

// Library is the validated, immutable pattern set for one run.
type Library struct {
	Version  int       `yaml:"version"`
	Patterns []Pattern `yaml:"patterns"`
}

// LoadLibrary parses and validates the embedded pattern library. It is
// called once at application start; the result is passed by reference and
// never mutated afterwards.
func LoadLibrary() (*Library, error) {
	return ParseLibrary(knownPatternsYAML)
}

// ParseLibrary parses a YAML pattern library and validates it. The YAML is
// treated purely as serialized data, never as executable configuration.
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing pattern library: %w", err)
	}
	if err := lib.validate(); err != nil {
		return nil, fmt.Errorf("validating pattern library: %w", err)
	}
	return &lib, nil
}

// ForKind returns the patterns applicable to the given artifact kind, in
// library order.
func (l *Library) ForKind(kind models.ArtifactKind) []Pattern {
	var out []Pattern
	for _, p := range l.Patterns {
		if p.AppliesTo == kind {
			out = append(out, p)
		}
	}
	return out
}

func (l *Library) validate() error {
	if len(l.Patterns) == 0 {
		return fmt.Errorf("library declares no patterns")
	}

	seen := make(map[string]struct{}, len(l.Patterns))
	fallbacks := make(map[models.ArtifactKind]int)
	minNonFallback := make(map[models.ArtifactKind]float64)
	fallbackConf := make(map[models.ArtifactKind]float64)

	for _, p := range l.Patterns {
		if p.ID == "" {
			return fmt.Errorf("pattern missing id")
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate pattern id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		if p.AppliesTo != models.KindMap && p.AppliesTo != models.KindTopic {
			return fmt.Errorf("pattern %q: applies_to must be map or topic, got %q", p.ID, p.AppliesTo)
		}
		if p.Asserts.Role == "" {
			return fmt.Errorf("pattern %q: asserts.role required", p.ID)
		}
		if p.Asserts.Confidence < 0 || p.Asserts.Confidence > 1 {
			return fmt.Errorf("pattern %q: confidence %v outside [0,1]", p.ID, p.Asserts.Confidence)
		}
		if len(p.Rationale) == 0 {
			return fmt.Errorf("pattern %q: rationale required", p.ID)
		}

		if p.Signals.Fallback {
			if !p.Signals.Empty() {
				return fmt.Errorf("pattern %q: fallback patterns must declare no other signals", p.ID)
			}
			fallbacks[p.AppliesTo]++
			fallbackConf[p.AppliesTo] = p.Asserts.Confidence
			continue
		}
		if p.Signals.Empty() {
			return fmt.Errorf("pattern %q: declares no signals", p.ID)
		}
		if cur, ok := minNonFallback[p.AppliesTo]; !ok || p.Asserts.Confidence < cur {
			minNonFallback[p.AppliesTo] = p.Asserts.Confidence
		}
	}

	for _, kind := range []models.ArtifactKind{models.KindMap, models.KindTopic} {
		if fallbacks[kind] != 1 {
			return fmt.Errorf("kind %q must declare exactly one fallback pattern, found %d", kind, fallbacks[kind])
		}
		// Fallback priority is guaranteed by confidence construction, not by
		// special cases in the resolver.
		if min, ok := minNonFallback[kind]; ok && fallbackConf[kind] >= min {
			return fmt.Errorf("kind %q: fallback confidence %v must be strictly below every non-fallback confidence (min %v)",
				kind, fallbackConf[kind], min)
		}
	}

	return nil
}

// SortedIDs returns every pattern ID in lexicographic order. Used by
// reporting and tests.
func (l *Library) SortedIDs() []string {
	ids := make([]string, 0, len(l.Patterns))
	for _, p := range l.Patterns {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids
}
