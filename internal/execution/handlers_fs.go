package execution

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ditapack/pkg/models"
)

// result constructors keep handler bodies focused on their decision flow.

func succeeded(action models.Action, handlerID, message string, data map[string]string) models.ExecutionActionResult {
	return models.ExecutionActionResult{
		ActionID:  action.ID,
		Status:    models.StatusSucceeded,
		HandlerID: handlerID,
		Message:   message,
		Data:      data,
	}
}

func skipped(action models.Action, handlerID string, dryRun bool, message string, data map[string]string) models.ExecutionActionResult {
	return models.ExecutionActionResult{
		ActionID:  action.ID,
		Status:    models.StatusSkipped,
		HandlerID: handlerID,
		DryRun:    dryRun,
		Message:   message,
		Data:      data,
	}
}

func failed(action models.Action, handlerID string, dryRun bool, message string, err error) models.ExecutionActionResult {
	result := models.ExecutionActionResult{
		ActionID:    action.ID,
		Status:      models.StatusFailed,
		HandlerID:   handlerID,
		DryRun:      dryRun,
		Message:     message,
		FailureType: models.FailureHandler,
	}
	if err != nil {
		result.Error = err.Error()
		var pv *PolicyViolationError
		if errors.As(err, &pv) {
			result.FailureType = models.FailurePolicy
		}
	}
	return result
}

// copyHandler serves the three copy action types. The artifact is pure
// transport: no parsing, no content interpretation.
type copyHandler struct {
	id string
}

func (h *copyHandler) ID() string { return h.id }

func (h *copyHandler) Execute(env *Env, action models.Action) models.ExecutionActionResult {
	source, ok := action.Param("source_path")
	if !ok {
		return failed(action, h.id, env.DryRun, "missing required parameter source_path", nil)
	}

	sourceAbs, err := env.Source.Resolve(source)
	if err != nil {
		return failed(action, h.id, env.DryRun, "source path refused", err)
	}
	targetAbs, err := env.Target.Resolve(action.Target)
	if err != nil {
		return failed(action, h.id, env.DryRun, "target path refused", err)
	}

	if env.DryRun {
		return skipped(action, h.id, true,
			fmt.Sprintf("simulated: would copy %s to %s", source, action.Target), nil)
	}

	content, err := os.ReadFile(sourceAbs)
	if err != nil {
		return failed(action, h.id, false, fmt.Sprintf("reading source %s", source), err)
	}

	// Idempotence: a target already holding the same bytes is a no-op.
	if existing, err := os.ReadFile(targetAbs); err == nil && bytes.Equal(existing, content) {
		return skipped(action, h.id, false,
			fmt.Sprintf("target %s already holds identical content", action.Target), nil)
	}

	decision, err := env.Policy.CheckWrite(targetAbs)
	if err != nil {
		return failed(action, h.id, false, "write refused by policy", err)
	}
	if decision == WriteSkip {
		return skipped(action, h.id, false,
			fmt.Sprintf("target %s exists, overwrite policy skips it", action.Target), nil)
	}

	if err := EnsureParentWritable(filepath.Dir(targetAbs)); err != nil {
		return failed(action, h.id, false, "preparing target directory", err)
	}
	if err := os.WriteFile(targetAbs, content, 0o644); err != nil {
		return failed(action, h.id, false, fmt.Sprintf("writing %s", action.Target), err)
	}

	return succeeded(action, h.id, fmt.Sprintf("copied %s to %s", source, action.Target), nil)
}

// renameMapHandler moves a previously copied map inside the sandbox.
type renameMapHandler struct{}

func (h *renameMapHandler) ID() string { return "fs.rename_map" }

func (h *renameMapHandler) Execute(env *Env, action models.Action) models.ExecutionActionResult {
	source, ok := action.Param("source_path")
	if !ok {
		return failed(action, h.ID(), env.DryRun, "missing required parameter source_path", nil)
	}

	sourceAbs, err := env.Target.Resolve(source)
	if err != nil {
		return failed(action, h.ID(), env.DryRun, "source path refused", err)
	}
	targetAbs, err := env.Target.Resolve(action.Target)
	if err != nil {
		return failed(action, h.ID(), env.DryRun, "target path refused", err)
	}

	if env.DryRun {
		return skipped(action, h.ID(), true,
			fmt.Sprintf("simulated: would rename %s to %s", source, action.Target), nil)
	}

	if _, err := os.Stat(sourceAbs); os.IsNotExist(err) {
		// Already renamed in a previous run.
		if _, err := os.Stat(targetAbs); err == nil {
			return skipped(action, h.ID(), false,
				fmt.Sprintf("%s already renamed to %s", source, action.Target), nil)
		}
		return failed(action, h.ID(), false, fmt.Sprintf("rename source %s does not exist", source), nil)
	}

	decision, err := env.Policy.CheckWrite(targetAbs)
	if err != nil {
		return failed(action, h.ID(), false, "write refused by policy", err)
	}
	if decision == WriteSkip {
		return skipped(action, h.ID(), false,
			fmt.Sprintf("target %s exists, overwrite policy skips the rename", action.Target), nil)
	}

	if err := EnsureParentWritable(filepath.Dir(targetAbs)); err != nil {
		return failed(action, h.ID(), false, "preparing target directory", err)
	}
	if err := os.Rename(sourceAbs, targetAbs); err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("renaming %s", source), err)
	}

	return succeeded(action, h.ID(), fmt.Sprintf("renamed %s to %s", source, action.Target), nil)
}

// deleteFileHandler removes one file inside the sandbox. A missing target
// is the desired end state and reports skipped.
type deleteFileHandler struct{}

func (h *deleteFileHandler) ID() string { return "fs.delete_file" }

func (h *deleteFileHandler) Execute(env *Env, action models.Action) models.ExecutionActionResult {
	targetAbs, err := env.Target.Resolve(action.Target)
	if err != nil {
		return failed(action, h.ID(), env.DryRun, "target path refused", err)
	}

	if env.DryRun {
		return skipped(action, h.ID(), true,
			fmt.Sprintf("simulated: would delete %s", action.Target), nil)
	}

	info, err := os.Stat(targetAbs)
	if os.IsNotExist(err) {
		return skipped(action, h.ID(), false,
			fmt.Sprintf("%s already absent", action.Target), nil)
	}
	if err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("inspecting %s", action.Target), err)
	}
	if info.IsDir() {
		return failed(action, h.ID(), false,
			fmt.Sprintf("%s is a directory, delete_file only removes files", action.Target), nil)
	}

	if err := os.Remove(targetAbs); err != nil {
		return failed(action, h.ID(), false, fmt.Sprintf("deleting %s", action.Target), err)
	}
	return succeeded(action, h.ID(), fmt.Sprintf("deleted %s", action.Target), nil)
}
