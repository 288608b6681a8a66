package execution

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"ditapack/internal/observability"
	"ditapack/pkg/models"
)

// actionState tracks one action through the dispatch state machine. States
// only ever advance; the terminal state is the reported status.
type actionState string

const (
	statePending          actionState = "pending"
	stateResolvingHandler actionState = "resolving_handler"
	stateValidating       actionState = "validating"
	stateApplying         actionState = "applying"
)

// Dispatcher walks a plan's actions strictly in plan order, resolves one
// handler per action, and collects results. It never reorders actions,
// never mutates parameters, and never repairs a failing action.
type Dispatcher struct {
	registry Registry
	env      *Env
	failFast bool

	events observability.EventLog
	now    func() time.Time
	newID  func() string
}

// NewDispatcher wires a dispatcher. events may be nil; now and newID are
// injectable so reports can be compared byte for byte in tests.
func NewDispatcher(registry Registry, env *Env, failFast bool, events observability.EventLog, now func() time.Time, newID func() string) *Dispatcher {
	if events == nil {
		events = observability.NewNopEventLog()
	}
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Dispatcher{
		registry: registry,
		env:      env,
		failFast: failFast,
		events:   events,
		now:      now,
		newID:    newID,
	}
}

// Execute runs the plan and assembles the execution report. Per-action
// failures are recorded and, unless fail-fast is set, do not stop the run.
// When fail-fast stops the run, every unattempted action is recorded as
// skipped so the report always covers the whole plan.
func (d *Dispatcher) Execute(plan *models.Plan) (*models.ExecutionReport, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan is nil")
	}

	executionID := d.newID()
	results := make([]models.ExecutionActionResult, 0, len(plan.Actions))
	halted := false

	for _, action := range plan.Actions {
		if halted {
			results = append(results, models.ExecutionActionResult{
				ActionID:  action.ID,
				Status:    models.StatusSkipped,
				HandlerID: "dispatcher",
				DryRun:    d.env.DryRun,
				Message:   "not attempted: an earlier action failed with fail-fast enabled",
			})
			continue
		}

		result := d.dispatch(action)
		results = append(results, result)

		if result.Status == models.StatusFailed && d.failFast {
			halted = true
		}
	}

	report, err := models.NewExecutionReport(executionID, d.now().UTC(), d.env.DryRun, results)
	if err != nil {
		return nil, err
	}

	d.logEvent("execution.finished", fmt.Sprintf("execution %s finished", executionID), map[string]any{
		"execution_id": executionID,
		"dry_run":      d.env.DryRun,
		"succeeded":    report.Summary.Succeeded,
		"failed":       report.Summary.Failed,
		"skipped":      report.Summary.Skipped,
	})
	return report, nil
}

// dispatch runs one action through the state machine. The action value is
// passed to the handler by value; whatever the handler does, the plan's
// data stays untouched.
func (d *Dispatcher) dispatch(action models.Action) models.ExecutionActionResult {
	d.logState(action.ID, statePending)

	d.logState(action.ID, stateResolvingHandler)
	handler, ok := d.registry.Resolve(action.Type)
	if !ok {
		// Plan validation normally makes this unreachable; a report entry
		// beats a panic if a plan arrives through another door.
		return models.ExecutionActionResult{
			ActionID:    action.ID,
			Status:      models.StatusFailed,
			HandlerID:   "dispatcher",
			DryRun:      d.env.DryRun,
			Message:     fmt.Sprintf("no handler registered for action type %q", action.Type),
			FailureType: models.FailureExecutor,
		}
	}

	// Validation and application both live inside the handler; the state
	// split is observable in the event log only.
	d.logState(action.ID, stateValidating)
	d.logState(action.ID, stateApplying)
	result := handler.Execute(d.env, action)

	d.logEvent("action.completed", fmt.Sprintf("action %s %s", action.ID, result.Status), map[string]any{
		"action_id": action.ID,
		"status":    string(result.Status),
		"handler":   result.HandlerID,
	})
	return result
}

func (d *Dispatcher) logState(actionID string, state actionState) {
	d.logEvent("action.state", fmt.Sprintf("action %s entered %s", actionID, state), map[string]any{
		"action_id": actionID,
		"state":     string(state),
	})
}

func (d *Dispatcher) logEvent(eventType, message string, data map[string]any) {
	_ = d.events.Write(observability.Event{
		Time:    d.now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: message,
		Data:    data,
	})
}
