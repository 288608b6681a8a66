package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType is the closed set of mutation intents a plan may carry.
// Unknown types are rejected at parse time, not at dispatch time.
type ActionType string

const (
	ActionCopyMap         ActionType = "copy_map"
	ActionCopyTopic       ActionType = "copy_topic"
	ActionCopyMedia       ActionType = "copy_media"
	ActionRenameMap       ActionType = "rename_map"
	ActionDeleteFile      ActionType = "delete_file"
	ActionWrapMap         ActionType = "wrap_map"
	ActionInjectTopicref  ActionType = "inject_topicref"
	ActionExtractGlossary ActionType = "extract_glossary"
)

// AllActionTypes lists every legal action type in stable order.
var AllActionTypes = []ActionType{
	ActionCopyMap,
	ActionCopyTopic,
	ActionCopyMedia,
	ActionRenameMap,
	ActionDeleteFile,
	ActionWrapMap,
	ActionInjectTopicref,
	ActionExtractGlossary,
}

// Valid reports whether t is a member of the closed action type set.
func (t ActionType) Valid() bool {
	for _, known := range AllActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON rejects unknown action types so a hand-edited plan fails at
// load time rather than at dispatch.
func (t *ActionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	candidate := ActionType(s)
	if !candidate.Valid() {
		return fmt.Errorf("unknown action type: %q", s)
	}
	*t = candidate
	return nil
}

// Action is a single declarative mutation intent. It is pure data and never
// executes itself; the dispatcher resolves a handler for it by type.
type Action struct {
	ID                  string            `json:"id"`
	Type                ActionType        `json:"type"`
	Target              string            `json:"target"`
	Parameters          map[string]string `json:"parameters"`
	Reason              string            `json:"reason"`
	DerivedFromEvidence []string          `json:"derived_from_evidence"`
}

// Param returns the named parameter and whether it was present and non-empty.
func (a Action) Param(key string) (string, bool) {
	v, ok := a.Parameters[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// PlanSourceDiscovery records which discovery artifact a plan was derived
// from.
type PlanSourceDiscovery struct {
	Path          string `json:"path"`
	SchemaVersion int    `json:"schema_version"`
	ArtifactCount int    `json:"artifact_count"`
}

// PlanIntent is the minimal declared intent the caller contributes to
// planning: a target package name and a human description.
type PlanIntent struct {
	Target      string `json:"target"`
	Description string `json:"description"`
}

// PlanVersion identifies the plan schema.
const PlanVersion = 1

// Plan is the ordered, validated list of actions produced by one planning
// run over one discovery contract. Action order is semantically significant
// and owned by the planner; executors must never reorder.
type Plan struct {
	PlanVersion     int                 `json:"plan_version"`
	GeneratedAt     time.Time           `json:"generated_at"`
	SourceDiscovery PlanSourceDiscovery `json:"source_discovery"`
	Intent          PlanIntent          `json:"intent"`
	Actions         []Action            `json:"actions"`
	Invariants      []InvariantResult   `json:"invariants"`
}

// PlanningInputVersion identifies the planning input contract schema.
const PlanningInputVersion = "planning.input.v1"

// PlanningArtifact is the restricted artifact view planning is allowed to
// see. Planning never re-discovers and never inspects the filesystem.
type PlanningArtifact struct {
	Path           string       `json:"path"`
	Kind           ArtifactKind `json:"artifact_type"`
	Classification string       `json:"classification,omitempty"`
}

// PlanningRelationship is the stable edge view used by planning.
type PlanningRelationship struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Type      string `json:"type"`
	PatternID string `json:"pattern_id"`
}

// PlanningInput is the schema-locked boundary between discovery and
// planning. Raw discovery output is not a legal planner input; it must pass
// through normalization first.
type PlanningInput struct {
	ContractVersion string                 `json:"contract_version"`
	MainMap         string                 `json:"main_map"`
	Artifacts       []PlanningArtifact     `json:"artifacts"`
	Relationships   []PlanningRelationship `json:"relationships"`
}
