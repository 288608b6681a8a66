package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ditapack/internal/knowledge"
	"ditapack/pkg/models"
)

// Engine runs a full discovery pass and assembles the durable contract.
// The clock is injectable so repeated runs over the same tree can be
// compared byte for byte.
type Engine struct {
	lib       *knowledge.Library
	validator *Validator
	now       func() time.Time
}

// NewEngine wires a discovery engine from an already-loaded pattern library.
func NewEngine(lib *knowledge.Library, validator *Validator, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{lib: lib, validator: validator, now: now}
}

// Discover scans sourceRoot and produces the complete contract: inventory,
// graph, invariant results, and eligibility. It performs no writes anywhere.
func (e *Engine) Discover(ctx context.Context, sourceRoot string) (*models.DiscoveryContract, error) {
	scanner := NewScanner(sourceRoot, e.lib)
	artifacts, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	graph := BuildGraph(artifacts)

	invariants, eligible, err := e.validator.Validate(artifacts, graph)
	if err != nil {
		return nil, err
	}

	var summary models.DiscoverySummary
	for _, a := range artifacts {
		switch a.Kind {
		case models.KindMap:
			summary.Maps++
		case models.KindTopic:
			summary.Topics++
		case models.KindMedia:
			summary.Media++
		}
	}

	relationships := make([]models.Edge, len(graph.Edges))
	copy(relationships, graph.Edges)

	return &models.DiscoveryContract{
		ContractVersion: models.DiscoveryContractVersion,
		GeneratedAt:     e.now().UTC(),
		SourceRoot:      filepath.ToSlash(sourceRoot),
		Artifacts:       artifacts,
		Relationships:   relationships,
		Graph:           graph,
		Invariants:      invariants,
		Eligible:        eligible,
		Summary:         summary,
	}, nil
}

// WriteContract serializes the contract as indented JSON. Serialization is
// deterministic: artifact order is path-sorted by the scanner and struct
// field order is fixed, so identical contracts produce identical bytes.
func WriteContract(contract *models.DiscoveryContract, path string) error {
	data, err := json.MarshalIndent(contract, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding discovery contract: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating contract directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing discovery contract: %w", err)
	}
	return nil
}

// LoadContract reads and validates a previously written contract. Version
// mismatch is an error: planning must never guess at schema drift.
func LoadContract(path string) (*models.DiscoveryContract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading discovery contract: %w", err)
	}
	var contract models.DiscoveryContract
	if err := json.Unmarshal(data, &contract); err != nil {
		return nil, fmt.Errorf("decoding discovery contract %s: %w", path, err)
	}
	if contract.ContractVersion != models.DiscoveryContractVersion {
		return nil, fmt.Errorf("unsupported contract version %q in %s (want %s)",
			contract.ContractVersion, path, models.DiscoveryContractVersion)
	}
	return &contract, nil
}
