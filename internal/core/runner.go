package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/graphload/graphload/internal/csv"
	"github.com/graphload/graphload/internal/graph"
	"github.com/graphload/graphload/internal/logging"
	"github.com/graphload/graphload/internal/schema"
)

// Runner drives the import path: it batches a record source, compiles
// each batch into one composite document, executes it, and correlates
// the response. Batches are strictly sequential with at most one in
// flight; the first non-empty failure report or fatal error aborts the
// run without draining the source.
type Runner struct {
	Exec      graph.Executor
	Model     *schema.Model
	Dialect   csv.Dialect
	BatchSize int
	Mode      Mode

	// Progress, when set, receives a snapshot after every batch.
	Progress ProgressCallback

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Run consumes src to exhaustion. It returns a *RunError when the API
// rejected records, a *SourceReadError when the source failed, and a
// *graph.TransportError when execution failed without a usable
// response. No retry is attempted at any level; that is the caller's
// policy.
func (r *Runner) Run(ctx context.Context, src Source) (*RunResult, error) {
	if r.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", r.BatchSize)
	}

	result := &RunResult{
		RunID: uuid.NewString(),
		Model: r.Model.Name,
		Mode:  r.Mode,
	}
	ctx = logging.WithRunID(ctx, result.RunID)

	log := r.Logger
	if log == nil {
		log = logging.FromContext(ctx)
	} else {
		log = log.With("run_id", result.RunID)
	}
	log = log.With("model", r.Model.Name, "mode", r.Mode.String())

	start := time.Now()
	buf := make([]Record, 0, r.BatchSize)
	batchNo := 0

	for {
		r.notify(result, PhaseReading, batchNo, nil)

		var (
			done bool
			err  error
		)
		buf, done, err = fill(ctx, src, buf, r.BatchSize)
		if err != nil {
			r.notify(result, PhaseFailed, batchNo, err)
			return nil, err
		}

		if len(buf) > 0 {
			batch := Batch{Records: buf, Number: batchNo}
			r.notify(result, PhaseExecuting, batchNo, nil)
			if err := r.runBatch(ctx, batch, log); err != nil {
				r.notify(result, PhaseFailed, batchNo, err)
				return nil, err
			}
			result.Records += len(buf)
			result.Batches++

			buf = buf[:0]
			batchNo++
		}

		if done {
			break
		}
	}

	result.Duration = time.Since(start)
	r.notify(result, PhaseComplete, batchNo, nil)
	log.Info("run complete",
		"records", result.Records,
		"batches", result.Batches,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// runBatch compiles, executes, and correlates one batch. The source is
// not pulled again until this returns, which is the backpressure point
// for streaming inputs.
func (r *Runner) runBatch(ctx context.Context, batch Batch, log *slog.Logger) error {
	doc, err := Compile(batch, r.Model, r.Dialect, r.Mode)
	if err != nil {
		return err
	}

	resp, execErr := r.Exec(ctx, doc)
	if resp == nil && execErr != nil {
		if _, ok := execErr.(*graph.TransportError); ok {
			return execErr
		}
		return &graph.TransportError{Err: execErr}
	}

	report := Correlate(doc, resp, r.BatchSize, batch.Number)
	if len(report) > 0 {
		log.Warn("batch rejected", "batch", batch.Number, "failed_records", len(report))
		return &RunError{Batch: batch.Number, Report: report}
	}
	if execErr != nil {
		// The response carried no attributable errors; treat the
		// execution failure as fatal.
		return &graph.TransportError{Err: execErr}
	}

	log.Debug("batch accepted", "batch", batch.Number, "records", len(batch.Records))
	return nil
}

func (r *Runner) notify(result *RunResult, phase Phase, batch int, err error) {
	if r.Progress == nil {
		return
	}
	p := Progress{
		RunID:   result.RunID,
		Model:   result.Model,
		Phase:   phase,
		Batch:   batch,
		Records: result.Records,
	}
	if err != nil {
		p.Error = err.Error()
	}
	r.Progress(p)
}
