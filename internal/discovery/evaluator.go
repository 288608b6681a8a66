package discovery

import (
	"sort"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

// EvaluatePatterns matches every applicable pattern against one artifact's
// metadata and returns the emitted evidence.
//
// Evaluation is a pure function: it reads only the artifact's metadata and
// the pattern set, touches no shared state, and performs no I/O. Evaluating
// a pattern against an artifact never depends on any other pattern or
// artifact.
//
// All of a pattern's declared signals must hold (conjunction). A missing
// metadata field is a non-match, never an error. If no non-fallback pattern
// matches, the single fallback pattern for the artifact's kind fires.
// Output order is canonical: ascending pattern ID, which callers combine
// with path-sorted artifact order for a fully deterministic evidence stream.
func EvaluatePatterns(artifact models.Artifact, patterns []knowledge.Pattern) []models.Evidence {
	var evidence []models.Evidence
	var fallback *knowledge.Pattern

	for i := range patterns {
		p := patterns[i]
		if p.AppliesTo != artifact.Kind {
			continue
		}
		if p.Signals.Fallback {
			if fallback == nil {
				fallback = &patterns[i]
			}
			continue
		}
		if signalsMatch(p.Signals, artifact.Metadata) {
			evidence = append(evidence, emit(p, artifact.Path))
		}
	}

	if len(evidence) == 0 && fallback != nil {
		evidence = append(evidence, emit(*fallback, artifact.Path))
	}

	sort.Slice(evidence, func(i, j int) bool {
		return evidence[i].PatternID < evidence[j].PatternID
	})
	return evidence
}

// signalsMatch evaluates the conjunction of declared signals against
// extracted metadata. Unknown or unevaluable conditions fail closed.
func signalsMatch(s knowledge.Signals, md models.Metadata) bool {
	if s.Filename != nil && md.Filename != s.Filename.Equals {
		return false
	}
	if s.RootElement != nil && md.RootElement != s.RootElement.Equals {
		return false
	}
	for _, c := range s.Contains {
		if c.Element == "" {
			return false
		}
		if !md.ContainsElement(c.Element) {
			return false
		}
	}
	for _, c := range s.Excludes {
		if c.Element == "" {
			return false
		}
		if md.ContainsElement(c.Element) {
			return false
		}
	}
	return true
}

func emit(p knowledge.Pattern, artifactPath string) models.Evidence {
	rationale := make([]string, len(p.Rationale))
	copy(rationale, p.Rationale)
	return models.Evidence{
		PatternID:    p.ID,
		ArtifactPath: artifactPath,
		AssertedRole: p.Asserts.Role,
		Confidence:   p.Asserts.Confidence,
		Rationale:    rationale,
	}
}

// ResolveEvidence reduces an artifact's evidence set to one classification.
//
// Policy: highest confidence wins. Exact ties resolve to the
// lexicographically smallest pattern ID, a named rule rather than iteration
// order. Fallback evidence loses to any non-fallback match by construction
// of the library's confidence values, not by special-casing here.
//
// Returns nil for an empty evidence set (media artifacts).
func ResolveEvidence(evidence []models.Evidence) *models.Classification {
	if len(evidence) == 0 {
		return nil
	}

	sorted := make([]models.Evidence, len(evidence))
	copy(sorted, evidence)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].PatternID < sorted[j].PatternID
	})

	best := sorted[0]
	return &models.Classification{
		Role:            best.AssertedRole,
		Confidence:      best.Confidence,
		SourcePatternID: best.PatternID,
	}
}
