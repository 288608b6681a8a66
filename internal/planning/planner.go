package planning

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

// PlanInvariantError reports a violated plan-level invariant found during
// final validation. A plan carrying one is never written.
type PlanInvariantError struct {
	Message string
}

func (e *PlanInvariantError) Error() string {
	return "plan invariant violated: " + e.Message
}

// IneligibleError is the hard refusal produced when the discovery contract
// is not eligible for a mutating plan and analysis-only was not requested.
type IneligibleError struct {
	Failed []string
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("discovery contract is not eligible for planning (blocking invariants failed: %v); rerun with analysis-only to inspect", e.Failed)
}

// Planner produces an ordered, validated plan from a normalized planning
// input. It runs a fixed rule sequence; rules append actions and may read
// previously emitted ones, but never mutate contract data and never call
// each other. A rule that cannot prove an action safe emits nothing.
type Planner struct {
	now func() time.Time
}

// NewPlanner creates a planner. The clock is injectable so identical inputs
// can be verified to produce byte-identical plans.
func NewPlanner(now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{now: now}
}

// Request carries everything one planning run consumes: the discovery
// contract, where it came from, and the caller's declared intent.
type Request struct {
	Contract     *models.DiscoveryContract
	ContractPath string
	Intent       models.PlanIntent
	AnalysisOnly bool
}

// ruleContext is the accumulating state threaded through the rule sequence.
type ruleContext struct {
	input  *models.PlanningInput
	intent models.PlanIntent
	order  []string

	actions []models.Action
	notes   []string

	// usedTargets maps emitted target paths to their source, for
	// collision refusal after flattening.
	usedTargets map[string]string
	seq         int
}

func (rc *ruleContext) nextID(prefix string) string {
	rc.seq++
	return fmt.Sprintf("%s-%04d", prefix, rc.seq)
}

// emitCopy appends one copy action unless its flattened target collides
// with an earlier emission. Collisions are refused and recorded, never
// resolved by renaming on the planner's own authority.
func (rc *ruleContext) emitCopy(actionType models.ActionType, source, target, reason string, evidence []string) {
	if prev, taken := rc.usedTargets[target]; taken {
		rc.notes = append(rc.notes, fmt.Sprintf(
			"refused %s for %s: target %s already claimed by %s", actionType, source, target, prev))
		return
	}
	rc.usedTargets[target] = source
	rc.actions = append(rc.actions, models.Action{
		ID:     rc.nextID("copy"),
		Type:   actionType,
		Target: target,
		Parameters: map[string]string{
			"source_path": source,
			"target_path": target,
		},
		Reason:              reason,
		DerivedFromEvidence: evidence,
	})
}

func (rc *ruleContext) artifact(p string) (models.PlanningArtifact, bool) {
	for _, a := range rc.input.Artifacts {
		if a.Path == p {
			return a, true
		}
	}
	return models.PlanningArtifact{}, false
}

// mainTarget is the output-relative path the main map is copied to.
func (rc *ruleContext) mainTarget() string {
	return rc.intent.Target + ".ditamap"
}

type rule struct {
	name string
	fn   func(*ruleContext) error
}

// plannerRules is the fixed, ordered rule sequence. Order is semantically
// significant: every copy precedes the actions that reference its copied
// path, and no later phase may reorder.
var plannerRules = []rule{
	{"copy_main_map", copyMainMapRule},
	{"copy_submaps", copySubmapsRule},
	{"copy_topics", copyTopicsRule},
	{"copy_media", copyMediaRule},
	{"glossary", glossaryRule},
}

// Plan runs the rule sequence over the request and returns a validated
// plan. Eligibility gating happens here: a contract with failed BLOCKING
// invariants is refused outright unless analysis-only is requested, in
// which case the plan carries the invariant results and zero actions.
func (p *Planner) Plan(req Request) (*models.Plan, error) {
	if req.Contract == nil {
		return nil, &ContractError{Field: "contract", Message: "discovery contract is nil"}
	}
	if req.Intent.Target == "" {
		return nil, &ContractError{Field: "intent.target", Message: "target name is required"}
	}
	if filepath.Base(req.Intent.Target) != req.Intent.Target || req.Intent.Target == "." || req.Intent.Target == ".." {
		return nil, &ContractError{Field: "intent.target", Message: fmt.Sprintf("target must be a bare name, got %q", req.Intent.Target)}
	}

	// An analysis-only plan carries the invariant results and no actions;
	// it is the only legal product of an ineligible contract.
	if req.AnalysisOnly {
		return p.assemble(req, nil, nil)
	}
	if !req.Contract.Eligible {
		var failed []string
		for _, inv := range req.Contract.Invariants {
			if !inv.Passed && inv.Severity == models.SeverityBlocking {
				failed = append(failed, inv.ID)
			}
		}
		return nil, &IneligibleError{Failed: failed}
	}

	input, err := NormalizeDiscovery(req.Contract)
	if err != nil {
		return nil, err
	}

	rc := &ruleContext{
		input:       input,
		intent:      req.Intent,
		order:       traversalOrder(input),
		usedTargets: make(map[string]string),
	}
	for _, r := range plannerRules {
		if err := r.fn(rc); err != nil {
			return nil, fmt.Errorf("planning rule %s: %w", r.name, err)
		}
	}

	plan, err := p.assemble(req, rc.actions, rc.notes)
	if err != nil {
		return nil, err
	}
	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *Planner) assemble(req Request, actions []models.Action, notes []string) (*models.Plan, error) {
	description := req.Intent.Description
	if description == "" {
		description = fmt.Sprintf("normalize package into %s layout", req.Intent.Target)
	}
	if len(notes) > 0 {
		for _, n := range notes {
			description += "; note: " + n
		}
	}
	if actions == nil {
		actions = []models.Action{}
	}

	return &models.Plan{
		PlanVersion: models.PlanVersion,
		GeneratedAt: p.now().UTC(),
		SourceDiscovery: models.PlanSourceDiscovery{
			Path:          req.ContractPath,
			SchemaVersion: models.PlanVersion,
			ArtifactCount: len(req.Contract.Artifacts),
		},
		Intent: models.PlanIntent{
			Target:      req.Intent.Target,
			Description: description,
		},
		Actions:    actions,
		Invariants: req.Contract.Invariants,
	}, nil
}

// copyMainMapRule emits the single main map copy, renamed to the declared
// target name at the output root. It always runs first so every later rule
// may reference the copied main map.
func copyMainMapRule(rc *ruleContext) error {
	main := rc.input.MainMap
	rc.emitCopy(models.ActionCopyMap, main, rc.mainTarget(),
		"main map establishes the target package root",
		[]string{"classification:MAIN:" + main})
	return nil
}

// copySubmapsRule copies every other map to the output root, flattened, in
// traversal order.
func copySubmapsRule(rc *ruleContext) error {
	for _, p := range rc.order {
		a, ok := rc.artifact(p)
		if !ok || a.Kind != models.KindMap || p == rc.input.MainMap {
			continue
		}
		rc.emitCopy(models.ActionCopyMap, p, path.Base(p),
			"map carried into target root", nil)
	}
	return nil
}

// copyTopicsRule copies every topic under topics/, flattened, in traversal
// order.
func copyTopicsRule(rc *ruleContext) error {
	for _, p := range rc.order {
		a, ok := rc.artifact(p)
		if !ok || a.Kind != models.KindTopic {
			continue
		}
		rc.emitCopy(models.ActionCopyTopic, p, path.Join("topics", path.Base(p)),
			"topic carried into topics/", nil)
	}
	return nil
}

// copyMediaRule copies every media file under media/, flattened, in
// traversal order.
func copyMediaRule(rc *ruleContext) error {
	for _, p := range rc.order {
		a, ok := rc.artifact(p)
		if !ok || a.Kind != models.KindMedia {
			continue
		}
		rc.emitCopy(models.ActionCopyMedia, p, path.Join("media", path.Base(p)),
			"media carried into media/", nil)
	}
	return nil
}

// glossaryRule wires an unambiguous glossary into the copied main map. A
// glossary map gets its references extracted and the map itself linked; a
// lone glossary topic gets linked directly. Any ambiguity (several glossary
// candidates of the same kind) emits nothing: under-planning is the safe
// failure mode.
func glossaryRule(rc *ruleContext) error {
	var glossMaps, glossTopics []string
	for _, a := range rc.input.Artifacts {
		if a.Classification != knowledge.RoleGlossary {
			continue
		}
		switch a.Kind {
		case models.KindMap:
			glossMaps = append(glossMaps, a.Path)
		case models.KindTopic:
			glossTopics = append(glossTopics, a.Path)
		}
	}

	switch {
	case len(glossMaps) == 1:
		source := glossMaps[0]
		copied, ok := rc.usedTargets[path.Base(source)]
		if !ok || copied != source {
			rc.notes = append(rc.notes, fmt.Sprintf(
				"glossary map %s was not copied; skipping glossary wiring", source))
			return nil
		}
		rc.actions = append(rc.actions, models.Action{
			ID:     rc.nextID("glossary"),
			Type:   models.ActionExtractGlossary,
			Target: path.Base(source),
			Parameters: map[string]string{
				"definition_map":      path.Base(source),
				"definition_navtitle": "Glossary",
			},
			Reason:              "inventory glossary references in the copied definition map",
			DerivedFromEvidence: []string{"classification:GLOSSARY:" + source},
		})
		rc.actions = append(rc.actions, models.Action{
			ID:     rc.nextID("glossary"),
			Type:   models.ActionInjectTopicref,
			Target: rc.mainTarget(),
			Parameters: map[string]string{
				"target_path": rc.mainTarget(),
				"href":        path.Base(source),
			},
			Reason:              "link glossary map from the main map",
			DerivedFromEvidence: []string{"classification:GLOSSARY:" + source},
		})
	case len(glossMaps) == 0 && len(glossTopics) == 1:
		source := glossTopics[0]
		href := path.Join("topics", path.Base(source))
		if owner, ok := rc.usedTargets[href]; !ok || owner != source {
			rc.notes = append(rc.notes, fmt.Sprintf(
				"glossary topic %s was not copied; skipping glossary wiring", source))
			return nil
		}
		rc.actions = append(rc.actions, models.Action{
			ID:     rc.nextID("glossary"),
			Type:   models.ActionInjectTopicref,
			Target: rc.mainTarget(),
			Parameters: map[string]string{
				"target_path": rc.mainTarget(),
				"href":        href,
			},
			Reason:              "link glossary topic from the main map",
			DerivedFromEvidence: []string{"classification:GLOSSARY:" + source},
		})
	case len(glossMaps) > 1 || len(glossTopics) > 1:
		rc.notes = append(rc.notes, fmt.Sprintf(
			"ambiguous glossary candidates (maps=%d topics=%d); no glossary wiring emitted",
			len(glossMaps), len(glossTopics)))
	}
	return nil
}

// ValidatePlan enforces plan-level invariants before a plan is accepted:
// unique non-empty action IDs, non-empty targets, members of the closed
// action type set, at most one main map rename, and dependency-safe
// ordering for actions that modify previously copied files.
func ValidatePlan(plan *models.Plan) error {
	if plan.PlanVersion != models.PlanVersion {
		return &PlanInvariantError{Message: fmt.Sprintf("unsupported plan version %d", plan.PlanVersion)}
	}

	seen := make(map[string]struct{}, len(plan.Actions))
	copied := make(map[string]struct{}, len(plan.Actions))
	renames := 0

	for i, a := range plan.Actions {
		loc := fmt.Sprintf("actions[%d]", i)
		if a.ID == "" {
			return &PlanInvariantError{Message: loc + " has empty id"}
		}
		if _, dup := seen[a.ID]; dup {
			return &PlanInvariantError{Message: "duplicate action id " + a.ID}
		}
		seen[a.ID] = struct{}{}
		if !a.Type.Valid() {
			return &PlanInvariantError{Message: fmt.Sprintf("%s has unknown type %q", loc, a.Type)}
		}
		if a.Target == "" {
			return &PlanInvariantError{Message: loc + " has empty target"}
		}

		switch a.Type {
		case models.ActionCopyMap, models.ActionCopyTopic, models.ActionCopyMedia:
			source, ok := a.Param("source_path")
			if !ok {
				return &PlanInvariantError{Message: loc + " missing source_path"}
			}
			if a.Type == models.ActionCopyMap && path.Base(source) != path.Base(a.Target) {
				renames++
			}
			copied[a.Target] = struct{}{}
		case models.ActionInjectTopicref, models.ActionWrapMap, models.ActionExtractGlossary:
			// These act on files the plan itself creates; the copy must
			// have been emitted earlier.
			if _, ok := copied[a.Target]; !ok {
				return &PlanInvariantError{Message: fmt.Sprintf(
					"%s (%s) references %s before any copy produces it", loc, a.Type, a.Target)}
			}
		}
	}

	if renames > 1 {
		return &PlanInvariantError{Message: fmt.Sprintf("plan renames %d maps, at most one (the main map) is allowed", renames)}
	}
	return nil
}

// WritePlan serializes the plan as indented JSON. Identical plans produce
// identical bytes.
func WritePlan(plan *models.Plan, outPath string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating plan directory: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// LoadPlan reads a plan and re-runs validation, so a hand-edited file fails
// at load time rather than at dispatch.
func LoadPlan(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	var plan models.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("decoding plan %s: %w", path, err)
	}
	if err := ValidatePlan(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
