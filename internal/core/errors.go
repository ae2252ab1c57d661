package core

import (
	"fmt"
	"sort"
	"strings"
)

// SourceReadError wraps a parse failure reported by the record source.
// It is fatal: the run stops without draining the remaining input.
type SourceReadError struct {
	Err error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("record source: %v", e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// RunError is returned when one batch's records were rejected by the
// API. The run is aborted at that batch; the report identifies which
// global record ordinals failed and why.
type RunError struct {
	Batch  int
	Report FailureReport
}

func (e *RunError) Error() string {
	ordinals := make([]int, 0, len(e.Report))
	for ord := range e.Report {
		ordinals = append(ordinals, ord)
	}
	sort.Ints(ordinals)

	var b strings.Builder
	fmt.Fprintf(&b, "batch %d: %d record(s) rejected:", e.Batch, len(e.Report))
	for _, ord := range ordinals {
		f := e.Report[ord]
		fmt.Fprintf(&b, "\n  record %d: %s", ord, f.Error.Message)
	}
	return b.String()
}
