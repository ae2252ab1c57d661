// Package core implements the bulk synchronization pipeline: batching of
// record streams, compilation of batches into composite graph operations,
// correlation of partial failures back to originating records, and
// paginated export of API-held records into delimited text.
package core

import (
	"time"

	"github.com/graphload/graphload/internal/graph"
)

// Record maps field names to raw values. CSV-sourced records carry
// textual values; in-memory records may carry native JSON values
// (bool, float64, []any). Records are immutable once produced.
type Record map[string]any

// Batch is an ordered group of records processed as one composite
// operation. Number is the zero-based batch ordinal within the run.
type Batch struct {
	Records []Record
	Number  int
}

// GlobalOrdinal returns the 1-based position across the whole run of the
// record at zero-based index local within batch batchNumber. The
// arithmetic only holds while the batch size stays fixed for the run,
// which is why runs never resize mid-flight.
func GlobalOrdinal(batchSize, batchNumber, local int) int {
	return batchSize*batchNumber + local + 1
}

// Mode selects the operation compiled for each record.
type Mode int

const (
	// ModeCreate compiles add<Model> mutations with a primary-key
	// selection per record.
	ModeCreate Mode = iota

	// ModeValidate compiles validate<Model>ForCreation queries with no
	// selection set.
	ModeValidate
)

// String returns the mode's CLI spelling.
func (m Mode) String() string {
	if m == ModeValidate {
		return "validate"
	}
	return "create"
}

// Failure describes one rejected record.
type Failure struct {
	// Query is the originating sub-query text when the failure was
	// attributed positionally. Empty for input-matched failures, which
	// are paired by value rather than position.
	Query string `json:"query,omitempty"`

	// Error is the API's error entry for this record.
	Error graph.Error `json:"error"`
}

// FailureReport maps global record ordinals to their failures. An empty
// report means the batch fully succeeded.
type FailureReport map[int]Failure

// Phase labels the current stage of a run for progress reporting.
type Phase string

const (
	// PhaseReading is emitted before the next batch is pulled from the
	// source.
	PhaseReading Phase = "reading"

	// PhaseExecuting is emitted as a compiled batch starts executing.
	// Its Records count covers completed batches only, not the batch
	// in flight.
	PhaseExecuting Phase = "executing"

	// PhaseExporting is emitted after a page's rows reach the sink.
	PhaseExporting Phase = "exporting"

	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// Progress is a point-in-time snapshot of a running import or export.
type Progress struct {
	RunID   string
	Model   string
	Phase   Phase
	Batch   int // zero-based batch or page ordinal
	Records int // records handed off so far
	Error   string
}

// ProgressCallback receives progress snapshots. Callbacks run on the
// pipeline goroutine and must return promptly.
type ProgressCallback func(Progress)

// RunResult summarizes a completed import run.
type RunResult struct {
	RunID    string
	Model    string
	Mode     Mode
	Records  int
	Batches  int
	Duration time.Duration
}

// ExportResult summarizes a completed export.
type ExportResult struct {
	RunID    string
	Model    string
	Rows     int
	Pages    int
	Expected int // advisory count reported by the API before paging
	Duration time.Duration
}
