// Package models defines the shared contract data types exchanged between
// the discovery, planning, and execution phases. Every phase boundary is a
// JSON artifact built from these types; none of them carry behavior beyond
// construction and validation.
package models

import "time"

// ArtifactKind distinguishes the three file categories discovery recognizes.
type ArtifactKind string

const (
	KindMap   ArtifactKind = "map"
	KindTopic ArtifactKind = "topic"
	KindMedia ArtifactKind = "media"
)

// Evidence records that one pattern matched one artifact. Evidence is
// immutable; conflicting records for the same artifact may legally coexist
// until the resolver reduces them.
type Evidence struct {
	PatternID    string   `json:"pattern_id"`
	ArtifactPath string   `json:"artifact_path"`
	AssertedRole string   `json:"asserted_role"`
	Confidence   float64  `json:"confidence"`
	Rationale    []string `json:"rationale"`
}

// Classification is the resolved role of an artifact after reducing its
// evidence set. It is computed, never stored independently.
type Classification struct {
	Role            string  `json:"role"`
	Confidence      float64 `json:"confidence"`
	SourcePatternID string  `json:"source_pattern_id"`
}

// Artifact is the observational record of one discovered file. It is created
// by the scanner and frozen; later phases read it but never mutate it.
// Media artifacts never carry classification or evidence.
type Artifact struct {
	Path           string          `json:"path"`
	Kind           ArtifactKind    `json:"artifact_type"`
	Metadata       Metadata        `json:"metadata"`
	Evidence       []Evidence      `json:"evidence"`
	Classification *Classification `json:"classification"`
	Notes          []string        `json:"notes,omitempty"`
}

// Metadata holds the precomputed structural facts extracted from an artifact
// by the scanner. Signal evaluation only ever reads these fields; it never
// re-opens the file.
type Metadata struct {
	Filename    string      `json:"filename"`
	RootElement string      `json:"root_element,omitempty"`
	Contains    []string    `json:"contains,omitempty"`
	Title       string      `json:"title,omitempty"`
	References  []Reference `json:"references,omitempty"`
	SizeBytes   int64       `json:"size_bytes,omitempty"`
	Extension   string      `json:"extension,omitempty"`
}

// ContainsElement reports whether the scanner observed at least one element
// with the given local name inside the artifact.
func (m Metadata) ContainsElement(name string) bool {
	for _, e := range m.Contains {
		if e == name {
			return true
		}
	}
	return false
}

// Reference is a single outgoing href observed in an artifact, before graph
// normalization.
type Reference struct {
	Element string `json:"element"`
	Href    string `json:"href"`
}

// Edge is a directed, file-level relationship between two artifacts.
type Edge struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Type      string `json:"type"`
	PatternID string `json:"pattern_id"`
}

// Graph is the canonical structural truth derived from extracted references.
// Dangling edges point at targets that resolved to no known artifact; they
// are structural facts, recorded and fed to invariant checking, never
// silently dropped.
type Graph struct {
	Nodes    []string `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Dangling []Edge   `json:"dangling,omitempty"`
}

// Outgoing returns the edges originating at node.
func (g Graph) Outgoing(node string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == node {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges pointing at node.
func (g Graph) Incoming(node string) []Edge {
	var in []Edge
	for _, e := range g.Edges {
		if e.Target == node {
			in = append(in, e)
		}
	}
	return in
}

// Severity ranks invariant outcomes. Only BLOCKING failures gate planning.
type Severity string

const (
	SeverityBlocking Severity = "BLOCKING"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// InvariantResult is the outcome of one named global check over the
// classified graph. Failing invariants are data, not errors.
type InvariantResult struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Passed   bool     `json:"passed"`
	Details  string   `json:"details,omitempty"`
}

// DiscoverySummary is the artifact histogram carried in the contract.
type DiscoverySummary struct {
	Maps   int `json:"maps"`
	Topics int `json:"topics"`
	Media  int `json:"media"`
}

// DiscoveryContractVersion identifies the discovery contract schema.
const DiscoveryContractVersion = "discovery.v1"

// DiscoveryContract is the durable output of a discovery run and the sole
// legal input to planning normalization. Immutable once produced.
// Relationships is a read-only projection of Graph.Edges kept for
// compatibility with consumers that predate the graph field.
type DiscoveryContract struct {
	ContractVersion string            `json:"contract_version"`
	GeneratedAt     time.Time         `json:"generated_at"`
	SourceRoot      string            `json:"source_root"`
	Artifacts       []Artifact        `json:"artifacts"`
	Relationships   []Edge            `json:"relationships"`
	Graph           Graph             `json:"graph"`
	Invariants      []InvariantResult `json:"invariants"`
	Eligible        bool              `json:"eligible"`
	Summary         DiscoverySummary  `json:"summary"`
}
