// Package planning turns a discovery contract into a deterministic, ordered
// plan of declarative mutation intents. Planning never re-discovers, never
// touches the filesystem, and consumes discovery output only through the
// schema-locked PlanningInput bridge.
package planning

import (
	"fmt"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

// ContractError reports a structural or semantic violation at the
// discovery/planning boundary. Field names the offending location.
type ContractError struct {
	Field   string
	Message string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("planning contract violation at %s: %s", e.Field, e.Message)
}

// collapseClassification reduces discovery roles to the ones planning
// understands: MAIN and GLOSSARY. Everything else deterministically
// becomes empty. Aliasing is exact, never fuzzy.
func collapseClassification(role string) string {
	switch role {
	case knowledge.RoleMain, "MAIN_MAP":
		return knowledge.RoleMain
	case knowledge.RoleGlossary:
		return knowledge.RoleGlossary
	default:
		return ""
	}
}

// NormalizeDiscovery converts a discovery contract into a validated
// PlanningInput. This is the only legal bridge between the phases; the
// planner refuses raw discovery output by construction.
//
// Violations return *ContractError. There are no optional behaviors, no
// silent defaults, and no guessing past ambiguity.
func NormalizeDiscovery(contract *models.DiscoveryContract) (*models.PlanningInput, error) {
	if contract == nil {
		return nil, &ContractError{Field: "contract", Message: "discovery contract is nil"}
	}
	if contract.ContractVersion != models.DiscoveryContractVersion {
		return nil, &ContractError{
			Field:   "contract_version",
			Message: fmt.Sprintf("unsupported version %q, want %s", contract.ContractVersion, models.DiscoveryContractVersion),
		}
	}

	artifacts := make([]models.PlanningArtifact, 0, len(contract.Artifacts))
	paths := make(map[string]struct{}, len(contract.Artifacts))
	var mainMaps []string

	for i, a := range contract.Artifacts {
		field := fmt.Sprintf("artifacts[%d]", i)
		if a.Path == "" {
			return nil, &ContractError{Field: field + ".path", Message: "empty path"}
		}
		switch a.Kind {
		case models.KindMap, models.KindTopic, models.KindMedia:
		default:
			return nil, &ContractError{
				Field:   field + ".artifact_type",
				Message: fmt.Sprintf("invalid artifact type %q", a.Kind),
			}
		}
		if _, dup := paths[a.Path]; dup {
			return nil, &ContractError{Field: field + ".path", Message: fmt.Sprintf("duplicate path %s", a.Path)}
		}
		paths[a.Path] = struct{}{}

		var classification string
		if a.Classification != nil {
			classification = collapseClassification(a.Classification.Role)
		}
		if a.Kind == models.KindMap && classification == knowledge.RoleMain {
			mainMaps = append(mainMaps, a.Path)
		}

		artifacts = append(artifacts, models.PlanningArtifact{
			Path:           a.Path,
			Kind:           a.Kind,
			Classification: classification,
		})
	}

	if len(mainMaps) != 1 {
		return nil, &ContractError{
			Field:   "artifacts",
			Message: fmt.Sprintf("exactly one map must be classified MAIN, found %d", len(mainMaps)),
		}
	}

	relationships := make([]models.PlanningRelationship, 0, len(contract.Relationships))
	for i, r := range contract.Relationships {
		field := fmt.Sprintf("relationships[%d]", i)
		if r.Source == "" || r.Target == "" {
			return nil, &ContractError{Field: field, Message: "empty endpoint"}
		}
		if _, ok := paths[r.Source]; !ok {
			return nil, &ContractError{Field: field + ".source", Message: fmt.Sprintf("unknown artifact %s", r.Source)}
		}
		if _, ok := paths[r.Target]; !ok {
			return nil, &ContractError{Field: field + ".target", Message: fmt.Sprintf("unknown artifact %s", r.Target)}
		}
		relationships = append(relationships, models.PlanningRelationship{
			Source:    r.Source,
			Target:    r.Target,
			Type:      r.Type,
			PatternID: r.PatternID,
		})
	}

	return &models.PlanningInput{
		ContractVersion: models.PlanningInputVersion,
		MainMap:         mainMaps[0],
		Artifacts:       artifacts,
		Relationships:   relationships,
	}, nil
}
