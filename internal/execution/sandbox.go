// Package execution applies a validated plan through a sandboxed,
// policy-enforced dispatcher. The dispatcher never improvises: it resolves
// exactly one handler per action type, never reorders the plan, and records
// every outcome in a write-once report.
package execution

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PolicyViolationError marks a refused write: a sandbox escape or an
// overwrite the policy denies. It always classifies as policy_violation in
// the report.
type PolicyViolationError struct {
	Message string
}

func (e *PolicyViolationError) Error() string { return e.Message }

// Sandbox confines every mutation to one root directory. Resolution and
// containment checking happen in a single step so no unresolved path is
// ever handed to a handler.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at root. The root is resolved to an
// absolute path immediately; a relative sandbox root would silently depend
// on the working directory.
func NewSandbox(root string) (*Sandbox, error) {
	if root == "" {
		return nil, fmt.Errorf("sandbox root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving sandbox root: %w", err)
	}
	return &Sandbox{root: abs}, nil
}

// Root returns the absolute sandbox root.
func (s *Sandbox) Root() string { return s.root }

// Resolve joins rel onto the sandbox root and verifies the result stays
// inside it. Absolute inputs and any form of traversal escape return
// *PolicyViolationError.
func (s *Sandbox) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", &PolicyViolationError{Message: "empty path cannot be resolved in sandbox"}
	}
	if filepath.IsAbs(rel) {
		return "", &PolicyViolationError{Message: fmt.Sprintf("absolute path %s refused by sandbox", rel)}
	}

	resolved := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(rel)))
	inside, err := filepath.Rel(s.root, resolved)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", &PolicyViolationError{Message: fmt.Sprintf("path %s escapes sandbox %s", rel, s.root)}
	}
	return resolved, nil
}
