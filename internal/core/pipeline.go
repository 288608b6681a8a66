package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ditapack/internal/discovery"
	"ditapack/internal/execution"
	"ditapack/internal/knowledge"
	"ditapack/internal/observability"
	"ditapack/internal/planning"
	"ditapack/pkg/models"
)

// Artifact filenames produced under the run's output directory.
const (
	ContractFilename = "discovery.json"
	PlanFilename     = "plan.json"
	ReportFilename   = "execution-report.json"
)

// Pipeline runs discover, plan, and execute as one sequence. Each phase
// consumes only the durable JSON artifact written by the phase before it;
// the pipeline re-reads every artifact from disk rather than passing
// in-memory values forward, so a full run exercises exactly the same
// contract boundaries as three separate commands.
type Pipeline struct {
	cfg    *models.GlobalConfig
	events observability.EventLog
	now    func() time.Time
	newID  func() string
}

// NewPipeline wires a pipeline. events may be nil; now and newID are
// injectable for deterministic tests.
func NewPipeline(cfg *models.GlobalConfig, events observability.EventLog, now func() time.Time, newID func() string) *Pipeline {
	if events == nil {
		events = observability.NewNopEventLog()
	}
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Pipeline{cfg: cfg, events: events, now: now, newID: newID}
}

// RunRequest carries the caller's declared inputs for one full run.
type RunRequest struct {
	SourceRoot  string
	SandboxRoot string
	OutDir      string
	Target      string
	Apply       bool
}

// RunResult reports where each phase artifact landed plus the loaded
// values for immediate inspection.
type RunResult struct {
	ContractPath string
	PlanPath     string
	ReportPath   string

	Contract *models.DiscoveryContract
	Plan     *models.Plan
	Report   *models.ExecutionReport
}

// Run executes the full pipeline. A failing phase aborts the run with an
// error naming the phase; artifacts from completed phases stay on disk.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	result := &RunResult{
		ContractPath: filepath.Join(req.OutDir, ContractFilename),
		PlanPath:     filepath.Join(req.OutDir, PlanFilename),
		ReportPath:   filepath.Join(req.OutDir, ReportFilename),
	}

	p.logEvent("run.started", "pipeline run started", map[string]any{
		"source":  req.SourceRoot,
		"sandbox": req.SandboxRoot,
		"target":  req.Target,
		"apply":   req.Apply,
	})

	contract, err := p.Discover(ctx, req.SourceRoot, result.ContractPath)
	if err != nil {
		return nil, fmt.Errorf("discovery phase: %w", err)
	}
	result.Contract = contract

	plan, err := p.PlanFromContract(result.ContractPath, req.Target, result.PlanPath)
	if err != nil {
		return nil, fmt.Errorf("planning phase: %w", err)
	}
	result.Plan = plan

	report, err := p.ExecuteFromPlan(result.PlanPath, req.SourceRoot, req.SandboxRoot, !req.Apply, result.ReportPath)
	if err != nil {
		return nil, fmt.Errorf("execution phase: %w", err)
	}
	result.Report = report

	return result, nil
}

// Discover runs the discovery phase and writes the contract to outPath.
func (p *Pipeline) Discover(ctx context.Context, sourceRoot, outPath string) (*models.DiscoveryContract, error) {
	p.logPhase("discovery", "started")

	lib, err := knowledge.LoadLibrary()
	if err != nil {
		return nil, err
	}
	validator := discovery.NewValidator(p.cfg.UnknownMapsSeverity)
	engine := discovery.NewEngine(lib, validator, p.now)

	contract, err := engine.Discover(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}
	if err := discovery.WriteContract(contract, outPath); err != nil {
		return nil, err
	}

	p.logPhase("discovery", "completed")
	return contract, nil
}

// PlanFromContract loads a discovery contract from disk, plans against it,
// and writes the plan to outPath.
func (p *Pipeline) PlanFromContract(contractPath, target, outPath string) (*models.Plan, error) {
	p.logPhase("planning", "started")

	contract, err := discovery.LoadContract(contractPath)
	if err != nil {
		return nil, err
	}

	planner := planning.NewPlanner(p.now)
	plan, err := planner.Plan(planning.Request{
		Contract:     contract,
		ContractPath: contractPath,
		Intent:       models.PlanIntent{Target: target},
		AnalysisOnly: p.cfg.AnalysisOnly,
	})
	if err != nil {
		return nil, err
	}
	if err := planning.WritePlan(plan, outPath); err != nil {
		return nil, err
	}

	p.logPhase("planning", "completed")
	return plan, nil
}

// ExecuteFromPlan loads a plan from disk and dispatches it into the
// sandbox, writing the report to outPath.
func (p *Pipeline) ExecuteFromPlan(planPath, sourceRoot, sandboxRoot string, dryRun bool, outPath string) (*models.ExecutionReport, error) {
	p.logPhase("execution", "started")

	plan, err := planning.LoadPlan(planPath)
	if err != nil {
		return nil, err
	}

	sourceSandbox, err := execution.NewSandbox(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("source root: %w", err)
	}
	targetSandbox, err := execution.NewSandbox(sandboxRoot)
	if err != nil {
		return nil, fmt.Errorf("sandbox root: %w", err)
	}
	policy, err := execution.NewMutationPolicy(p.cfg.Overwrite)
	if err != nil {
		return nil, err
	}

	env := &execution.Env{
		Source: sourceSandbox,
		Target: targetSandbox,
		Policy: policy,
		DryRun: dryRun,
	}
	dispatcher := execution.NewDispatcher(execution.NewRegistry(), env, p.cfg.FailFast, p.events, p.now, p.newID)

	// A dry run mutates nothing, so it takes no run lock and never touches
	// the sandbox directory. Only an apply run serializes on the lock.
	var report *models.ExecutionReport
	dispatch := func() error {
		var dispatchErr error
		report, dispatchErr = dispatcher.Execute(plan)
		return dispatchErr
	}
	if dryRun {
		err = dispatch()
	} else {
		err = execution.WithRunLock(targetSandbox, dispatch)
	}
	if err != nil {
		return nil, err
	}
	if err := execution.WriteReport(report, outPath); err != nil {
		return nil, err
	}

	p.logPhase("execution", "completed")
	return report, nil
}

func (p *Pipeline) logPhase(phase, state string) {
	p.logEvent("phase."+state, fmt.Sprintf("%s phase %s", phase, state), map[string]any{
		"phase": phase,
	})
}

func (p *Pipeline) logEvent(eventType, message string, data map[string]any) {
	_ = p.events.Write(observability.Event{
		Time:    p.now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: message,
		Data:    data,
	})
}
