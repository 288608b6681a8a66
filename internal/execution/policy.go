package execution

import (
	"fmt"
	"os"

	"ditapack/pkg/models"
)

// WriteDecision is the policy's verdict for one prospective write.
type WriteDecision int

const (
	// WriteProceed allows the mutation.
	WriteProceed WriteDecision = iota
	// WriteSkip preserves the existing target; the action reports skipped.
	WriteSkip
)

// MutationPolicy gates every filesystem write. It is consulted
// synchronously before the mutating call, never after.
type MutationPolicy struct {
	Overwrite models.OverwriteMode
}

// NewMutationPolicy builds a policy, defaulting to deny: refusing an
// unexpected overwrite is always the safe interpretation.
func NewMutationPolicy(mode models.OverwriteMode) (*MutationPolicy, error) {
	switch mode {
	case "":
		mode = models.OverwriteDeny
	case models.OverwriteDeny, models.OverwriteReplace, models.OverwriteSkip:
	default:
		return nil, fmt.Errorf("unknown overwrite mode %q", mode)
	}
	return &MutationPolicy{Overwrite: mode}, nil
}

// CheckWrite decides whether target may be written. An existing target is
// governed by the overwrite mode; a missing target always proceeds.
// Deny returns *PolicyViolationError.
func (p *MutationPolicy) CheckWrite(target string) (WriteDecision, error) {
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return WriteProceed, nil
		}
		return WriteSkip, fmt.Errorf("inspecting write target %s: %w", target, err)
	}
	if info.IsDir() {
		return WriteSkip, &PolicyViolationError{Message: fmt.Sprintf("write target %s is a directory", target)}
	}

	switch p.Overwrite {
	case models.OverwriteReplace:
		return WriteProceed, nil
	case models.OverwriteSkip:
		return WriteSkip, nil
	default:
		return WriteSkip, &PolicyViolationError{Message: fmt.Sprintf("target %s exists and overwrite policy is deny", target)}
	}
}

// EnsureParentWritable verifies the directory that will hold target exists
// or can be created. Creation failures surface before the handler attempts
// its mutating call.
func EnsureParentWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("preparing target directory %s: %w", dir, err)
	}
	return nil
}
