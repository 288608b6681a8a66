package discovery

import (
	"fmt"
	"sort"
	"strings"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

// Invariant IDs are stable and appear verbatim in the contract.
const (
	InvariantExactlyOneMain       = "exactly_one_main"
	InvariantAtMostOneAbstract    = "at_most_one_abstract"
	InvariantAtMostOneGlossary    = "at_most_one_glossary"
	InvariantNoUnknownMaps        = "no_unknown_maps"
	InvariantNoDanglingReferences = "no_dangling_references"
)

// Validator runs the fixed, ordered list of global invariant checks over the
// classified inventory and graph. Failing invariants are data carried into
// the contract, never errors; only contract-assembly corruption aborts.
type Validator struct {
	// unknownMapsSeverity is configurable: packages mid-migration often
	// carry unclassifiable maps that should warn rather than block.
	unknownMapsSeverity models.Severity
}

// NewValidator creates a validator. severity controls how unclassified maps
// are reported; every other check has a fixed severity.
func NewValidator(unknownMapsSeverity models.Severity) *Validator {
	if unknownMapsSeverity == "" {
		unknownMapsSeverity = models.SeverityWarning
	}
	return &Validator{unknownMapsSeverity: unknownMapsSeverity}
}

// Validate runs every check in its fixed order and reports the results plus
// the eligibility verdict: any failed BLOCKING invariant makes the package
// ineligible for a default (mutating) plan.
//
// The only error case is a corrupt inventory (the same path recorded with
// two different kinds), which means the contract itself cannot be trusted.
func (v *Validator) Validate(artifacts []models.Artifact, graph models.Graph) ([]models.InvariantResult, bool, error) {
	if err := checkInventoryCoherence(artifacts); err != nil {
		return nil, false, err
	}

	results := []models.InvariantResult{
		countRoleInvariant(artifacts, InvariantExactlyOneMain, knowledge.RoleMain, 1, 1, models.SeverityBlocking),
		countRoleInvariant(artifacts, InvariantAtMostOneAbstract, knowledge.RoleAbstract, 0, 1, models.SeverityBlocking),
		countRoleInvariant(artifacts, InvariantAtMostOneGlossary, knowledge.RoleGlossary, 0, 1, models.SeverityBlocking),
		v.unknownMaps(artifacts),
		danglingReferences(graph),
	}

	eligible := true
	for _, r := range results {
		if !r.Passed && r.Severity == models.SeverityBlocking {
			eligible = false
		}
	}
	return results, eligible, nil
}

func checkInventoryCoherence(artifacts []models.Artifact) error {
	kinds := make(map[string]models.ArtifactKind, len(artifacts))
	for _, a := range artifacts {
		if prev, ok := kinds[a.Path]; ok && prev != a.Kind {
			return fmt.Errorf("corrupt inventory: %s recorded as both %s and %s", a.Path, prev, a.Kind)
		}
		kinds[a.Path] = a.Kind
	}
	return nil
}

// countRoleInvariant checks that the number of maps classified with role
// lies within [min, max].
func countRoleInvariant(artifacts []models.Artifact, id, role string, min, max int, severity models.Severity) models.InvariantResult {
	var paths []string
	for _, a := range artifacts {
		if a.Kind != models.KindMap || a.Classification == nil {
			continue
		}
		if a.Classification.Role == role {
			paths = append(paths, a.Path)
		}
	}
	sort.Strings(paths)

	count := len(paths)
	result := models.InvariantResult{ID: id, Severity: severity, Passed: count >= min && count <= max}
	if result.Passed {
		result.Details = fmt.Sprintf("found %d %s map(s)", count, role)
	} else {
		result.Details = fmt.Sprintf("expected between %d and %d %s map(s), found %d: %s",
			min, max, role, count, strings.Join(paths, ", "))
	}
	return result
}

func (v *Validator) unknownMaps(artifacts []models.Artifact) models.InvariantResult {
	var paths []string
	for _, a := range artifacts {
		if a.Kind != models.KindMap {
			continue
		}
		if a.Classification == nil || a.Classification.Role == knowledge.RoleUnknown {
			paths = append(paths, a.Path)
		}
	}
	sort.Strings(paths)

	result := models.InvariantResult{
		ID:       InvariantNoUnknownMaps,
		Severity: v.unknownMapsSeverity,
		Passed:   len(paths) == 0,
	}
	if result.Passed {
		result.Details = "all maps classified"
	} else {
		result.Details = fmt.Sprintf("%d map(s) with UNKNOWN classification: %s", len(paths), strings.Join(paths, ", "))
	}
	return result
}

func danglingReferences(graph models.Graph) models.InvariantResult {
	result := models.InvariantResult{
		ID:       InvariantNoDanglingReferences,
		Severity: models.SeverityWarning,
		Passed:   len(graph.Dangling) == 0,
	}
	if result.Passed {
		result.Details = "every reference resolves to a known artifact"
		return result
	}
	targets := make([]string, 0, len(graph.Dangling))
	for _, e := range graph.Dangling {
		targets = append(targets, fmt.Sprintf("%s -> %s", e.Source, e.Target))
	}
	sort.Strings(targets)
	result.Details = fmt.Sprintf("%d dangling reference(s): %s", len(targets), strings.Join(targets, ", "))
	return result
}
