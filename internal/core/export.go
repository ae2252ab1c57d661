package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"

	"github.com/graphload/graphload/internal/csv"
	"github.com/graphload/graphload/internal/graph"
	"github.com/graphload/graphload/internal/logging"
	"github.com/graphload/graphload/internal/schema"
)

// Sink receives serialized export rows in order. Implementations decide
// whether rows land in a stream or accumulate in memory.
type Sink interface {
	Append(row string) error
}

// WriterSink appends each row to an underlying writer, terminated by the
// dialect's record delimiter.
type WriterSink struct {
	W      io.Writer
	Record string
}

// Append implements Sink.
func (s *WriterSink) Append(row string) error {
	_, err := io.WriteString(s.W, row+s.Record)
	return err
}

// BufferSink accumulates rows in memory for callers without a writable
// stream.
type BufferSink struct {
	Rows []string
}

// Append implements Sink.
func (s *BufferSink) Append(row string) error {
	s.Rows = append(s.Rows, row)
	return nil
}

// Exporter paginates a cursor-connection read API and serializes pages
// into delimited rows. Pages are fetched strictly sequentially: page k+1
// is not requested until page k's rows are in the sink.
type Exporter struct {
	Exec     graph.Executor
	Dialect  csv.Dialect
	PageSize int
	Progress ProgressCallback
	Logger   *slog.Logger
}

// connectionPage is the decoded shape of one page fetch.
type connectionPage struct {
	hasNext bool
	cursor  string
	rows    []map[string]any
}

// Export writes a header row and every record of the model to sink,
// projecting exactly attrs. header may be nil, in which case the
// attribute list is echoed as the header. Any failure (count query, page
// fetch, serialization, sink write) halts the pagination loop and is
// returned as a single wrapped error.
func (e *Exporter) Export(ctx context.Context, model string, header, attrs []string, sink Sink) (*ExportResult, error) {
	if e.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", e.PageSize)
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("export %s: no attributes requested", model)
	}

	result := &ExportResult{
		RunID: uuid.NewString(),
		Model: model,
	}
	ctx = logging.WithRunID(ctx, result.RunID)

	log := e.Logger
	if log == nil {
		log = logging.FromContext(ctx)
	} else {
		log = log.With("run_id", result.RunID)
	}
	log = log.With("model", model)
	start := time.Now()

	// The count is advisory, for progress only: correctness of the loop
	// depends solely on hasNextPage.
	total, err := e.count(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", model, err)
	}
	result.Expected = total
	log.Info("export starting", "expected_rows", total)

	if header == nil {
		header = attrs
	}
	if err := sink.Append(strings.Join(header, string(e.Dialect.Field))); err != nil {
		return nil, fmt.Errorf("export %s: write header: %w", model, err)
	}

	if total == 0 {
		result.Duration = time.Since(start)
		e.notify(result, PhaseComplete, nil)
		return result, nil
	}

	plural := inflection.Plural(model)
	cursor := ""
	for {
		page, err := e.fetchPage(ctx, model, plural, attrs, cursor)
		if err != nil {
			e.notify(result, PhaseFailed, err)
			return nil, fmt.Errorf("export %s: page %d: %w", model, result.Pages, err)
		}

		for _, row := range page.rows {
			if err := sink.Append(e.serializeRow(row, attrs)); err != nil {
				e.notify(result, PhaseFailed, err)
				return nil, fmt.Errorf("export %s: write row: %w", model, err)
			}
			result.Rows++
		}
		result.Pages++
		e.notify(result, PhaseExporting, nil)
		log.Debug("page exported", "page", result.Pages, "rows", len(page.rows))

		if !page.hasNext {
			break
		}
		cursor = page.cursor
	}

	result.Duration = time.Since(start)
	e.notify(result, PhaseComplete, nil)
	log.Info("export complete",
		"rows", result.Rows,
		"pages", result.Pages,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// count issues the count query for the model.
func (e *Exporter) count(ctx context.Context, model string) (int, error) {
	field := "count" + schema.Title(inflection.Plural(model))
	resp, err := e.Exec(ctx, fmt.Sprintf("{ %s }", field))
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	if len(resp.Errors) > 0 {
		return 0, fmt.Errorf("count query: %s", resp.Errors[0].Message)
	}

	var data map[string]int
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("count query: decode: %w", err)
	}
	n, ok := data[field]
	if !ok {
		return 0, fmt.Errorf("count query: field %s missing from response", field)
	}
	return n, nil
}

// fetchPage requests one page of the connection, passing the prior
// page's end cursor after the first fetch.
func (e *Exporter) fetchPage(ctx context.Context, model, plural string, attrs []string, cursor string) (*connectionPage, error) {
	pagination := fmt.Sprintf("first:%d", e.PageSize)
	if cursor != "" {
		pagination += fmt.Sprintf(", after:%s", quoteJSON(cursor))
	}
	query := fmt.Sprintf(
		"{ %sConnection(pagination:{%s}){ pageInfo{hasNextPage endCursor} %s{ %s } } }",
		model, pagination, plural, strings.Join(attrs, " "),
	)

	resp, err := e.Exec(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("api error: %s", resp.Errors[0].Message)
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	conn, ok := data[model+"Connection"]
	if !ok {
		return nil, fmt.Errorf("connection field %sConnection missing from response", model)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(conn, &envelope); err != nil {
		return nil, fmt.Errorf("decode connection: %w", err)
	}

	var info struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	}
	if raw, ok := envelope["pageInfo"]; ok {
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("decode pageInfo: %w", err)
		}
	}

	page := &connectionPage{hasNext: info.HasNextPage, cursor: info.EndCursor}
	if raw, ok := envelope[plural]; ok {
		if err := json.Unmarshal(raw, &page.rows); err != nil {
			return nil, fmt.Errorf("decode %s rows: %w", plural, err)
		}
	}
	return page, nil
}

// serializeRow renders one record as delimiter-joined quoted tokens.
// List values collapse into one quoted token joined by the array
// delimiter; null, missing, and empty-list attributes become the quoted
// NULL sentinel.
func (e *Exporter) serializeRow(row map[string]any, attrs []string) string {
	toks := make([]string, len(attrs))
	for i, attr := range attrs {
		toks[i] = e.serializeAttr(row[attr])
	}
	return strings.Join(toks, string(e.Dialect.Field))
}

func (e *Exporter) serializeAttr(v any) string {
	switch val := v.(type) {
	case nil:
		return quoteJSON(e.Dialect.Null)
	case []any:
		if len(val) == 0 {
			return quoteJSON(e.Dialect.Null)
		}
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = scalarText(item)
		}
		return quoteJSON(strings.Join(parts, e.Dialect.Array))
	default:
		return quoteJSON(scalarText(val))
	}
}

// scalarText renders a decoded JSON scalar in its shortest textual form.
func scalarText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (e *Exporter) notify(result *ExportResult, phase Phase, err error) {
	if e.Progress == nil {
		return
	}
	p := Progress{
		RunID:   result.RunID,
		Model:   result.Model,
		Phase:   phase,
		Batch:   result.Pages,
		Records: result.Rows,
	}
	if err != nil {
		p.Error = err.Error()
	}
	e.Progress(p)
}
