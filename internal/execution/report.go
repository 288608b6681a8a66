package execution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ditapack/pkg/models"
)

// WriteReport persists an execution report as indented JSON. Reports are
// write-once: an existing file at the path is a hard error, never silently
// replaced, so the forensic record of a run can't be clobbered by a rerun
// pointed at the same output.
func WriteReport(report *models.ExecutionReport, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("execution report already exists at %s, refusing to overwrite", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("inspecting report path %s: %w", path, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding execution report: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing execution report: %w", err)
	}
	return nil
}

// LoadReport reads a previously written report.
func LoadReport(path string) (*models.ExecutionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading execution report: %w", err)
	}
	var report models.ExecutionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding execution report %s: %w", path, err)
	}
	return &report, nil
}
