package models

import (
	"fmt"
	"time"
)

// ActionStatus is the terminal outcome of one dispatched action.
type ActionStatus string

const (
	StatusSucceeded ActionStatus = "succeeded"
	StatusFailed    ActionStatus = "failed"
	StatusSkipped   ActionStatus = "skipped"
)

// FailureType classifies why an action failed. Only meaningful when the
// status is failed.
type FailureType string

const (
	// FailureHandler covers everything raised inside a handler: missing
	// source files, unreadable XML, copy errors.
	FailureHandler FailureType = "handler_error"
	// FailurePolicy covers sandbox escapes and overwrite denials.
	FailurePolicy FailureType = "policy_violation"
	// FailureExecutor covers dispatcher-level problems such as an
	// unregistered action type.
	FailureExecutor FailureType = "executor_error"
)

// ExecutionActionResult is the forensic record of one action's execution.
type ExecutionActionResult struct {
	ActionID    string            `json:"action_id"`
	Status      ActionStatus      `json:"status"`
	HandlerID   string            `json:"handler_id"`
	DryRun      bool              `json:"dry_run"`
	Message     string            `json:"message"`
	Error       string            `json:"error,omitempty"`
	FailureType FailureType       `json:"failure_type,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// ExecutionSummary aggregates per-action outcomes for quick inspection.
type ExecutionSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// ExecutionReport is the durable, immutable record of one execution run.
// Results appear in plan order.
type ExecutionReport struct {
	ExecutionID string                  `json:"execution_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	DryRun      bool                    `json:"dry_run"`
	Results     []ExecutionActionResult `json:"results"`
	Summary     ExecutionSummary        `json:"summary"`
}

// NewExecutionReport assembles a report and computes its summary. It rejects
// results carrying a status outside the closed set.
func NewExecutionReport(executionID string, generatedAt time.Time, dryRun bool, results []ExecutionActionResult) (*ExecutionReport, error) {
	summary := ExecutionSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		default:
			return nil, fmt.Errorf("invalid execution status %q for action %s", r.Status, r.ActionID)
		}
	}
	return &ExecutionReport{
		ExecutionID: executionID,
		GeneratedAt: generatedAt,
		DryRun:      dryRun,
		Results:     results,
		Summary:     summary,
	}, nil
}
