package core

import (
	"context"
	"io"

	"github.com/graphload/graphload/internal/csv"
)

// Source produces records one at a time. Next returns io.EOF when the
// source is exhausted and any other error for a read failure.
//
// The contract is pull-based on purpose: the pipeline only asks for the
// next record while it is filling the current batch, so a streaming
// producer is naturally suspended while a batch is compiled and
// executed. That bounds memory to one batch and keeps the global
// ordinal arithmetic valid.
type Source interface {
	Next(ctx context.Context) (Record, error)
}

// SliceSource serves a finite in-memory record sequence.
type SliceSource struct {
	records []Record
	pos     int
}

// NewSliceSource returns a Source over records.
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// CSVSource adapts a delimited-text row reader into a record source.
// Rows are keyed by the cleaned header names of the input.
type CSVSource struct {
	reader *csv.RowReader
}

// NewCSVSource returns a Source over the rows of r.
func NewCSVSource(r *csv.RowReader) *CSVSource {
	return &CSVSource{reader: r}
}

// Next implements Source.
func (s *CSVSource) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := s.reader.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	fields := s.reader.Fields(row)
	rec := make(Record, len(fields))
	for name, value := range fields {
		rec[name] = value
	}
	return rec, nil
}

// fill pulls records from src into buf until the buffer holds want
// records or the source is exhausted. It reports exhaustion via the
// second return.
func fill(ctx context.Context, src Source, buf []Record, want int) ([]Record, bool, error) {
	for len(buf) < want {
		rec, err := src.Next(ctx)
		if err == io.EOF {
			return buf, true, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return buf, false, err
			}
			return buf, false, &SourceReadError{Err: err}
		}
		buf = append(buf, rec)
	}
	return buf, false, nil
}
