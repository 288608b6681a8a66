// Package observability provides event logging and run metrics for
// ditapack. Phase and action events persist as structured JSON Lines
// (JSONL); metrics are derived on-demand from the event log.
package observability
