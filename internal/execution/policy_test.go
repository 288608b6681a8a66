package execution

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ditapack/pkg/models"
)

func TestNewMutationPolicy(t *testing.T) {
	p, err := NewMutationPolicy("")
	if err != nil {
		t.Fatalf("empty mode: %v", err)
	}
	if p.Overwrite != models.OverwriteDeny {
		t.Errorf("default mode = %s, want deny", p.Overwrite)
	}

	if _, err := NewMutationPolicy("clobber"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestMutationPolicy_CheckWrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.dita")
	if err := os.WriteFile(existing, []byte("<topic/>"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	missing := filepath.Join(dir, "missing.dita")

	tests := []struct {
		name    string
		mode    models.OverwriteMode
		target  string
		want    WriteDecision
		wantErr bool
	}{
		{"missing target always proceeds under deny", models.OverwriteDeny, missing, WriteProceed, false},
		{"missing target always proceeds under skip", models.OverwriteSkip, missing, WriteProceed, false},
		{"existing target denied", models.OverwriteDeny, existing, WriteSkip, true},
		{"existing target replaced", models.OverwriteReplace, existing, WriteProceed, false},
		{"existing target skipped", models.OverwriteSkip, existing, WriteSkip, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewMutationPolicy(tt.mode)
			if err != nil {
				t.Fatalf("policy: %v", err)
			}
			decision, err := p.CheckWrite(tt.target)
			if decision != tt.want {
				t.Errorf("decision = %v, want %v", decision, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMutationPolicy_DenyIsPolicyViolation(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.dita")
	if err := os.WriteFile(existing, []byte("<topic/>"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	p, err := NewMutationPolicy(models.OverwriteDeny)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	_, err = p.CheckWrite(existing)
	var pv *PolicyViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("expected *PolicyViolationError, got %T: %v", err, err)
	}
}

func TestMutationPolicy_DirectoryTargetIsViolation(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "topics")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	p, err := NewMutationPolicy(models.OverwriteReplace)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	_, err = p.CheckWrite(sub)
	var pv *PolicyViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("expected *PolicyViolationError for directory target, got %T: %v", err, err)
	}
}
