package csv

import (
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"strings"
)

// HeaderIndex maps cleaned, lowercased column names to their position in
// a row. Computed once per file and reused for every record.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a raw header row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(CleanHeader(h))] = i
	}
	return idx
}

// CleanHeader normalizes a header cell: trims whitespace, strips an Excel
// formula prefix ("=\"...\"") and any surrounding quotes.
func CleanHeader(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	}
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

// CleanCell trims whitespace and zero-width characters spreadsheets leave
// behind. Interior content is preserved verbatim, including quotes: the
// compiler distinguishes quote-wrapped values from bare ones.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, "\u200b\ufeff")
}

// RowReader delivers one delimited record at a time. It is pull-based:
// the underlying stream is only consumed when the caller asks for the
// next row, which is what bounds memory to a single batch upstream.
type RowReader struct {
	src      *stdcsv.Reader
	counting *CountingReader
	header   []string
	names    []string // cleaned header names, original casing
	index    HeaderIndex
	lineNo   int // 1-based line of the most recent row
}

// NewRowReader wraps an input stream of unknown size. See
// NewStreamingRowReader.
func NewRowReader(r io.Reader, d Dialect) (*RowReader, error) {
	return NewStreamingRowReader(r, 0, d)
}

// NewStreamingRowReader wraps an input stream with streaming hygiene
// (BOM, UTF-8, byte counting against an optional known total) and reads
// the first row as the header.
func NewStreamingRowReader(r io.Reader, total int64, d Dialect) (*RowReader, error) {
	counting := WrapForStreaming(r, total)
	cr := stdcsv.NewReader(counting)
	cr.Comma = d.Field
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = CleanHeader(h)
	}

	return &RowReader{
		src:      cr,
		counting: counting,
		header:   header,
		names:    names,
		index:    MakeHeaderIndex(header),
		lineNo:   1,
	}, nil
}

// Header returns the raw header row.
func (r *RowReader) Header() []string { return r.header }

// Canonicalize renames header columns to the caller's canonical field
// names, matched case-insensitively through the header index. Columns
// with no canonical counterpart keep their cleaned spelling.
func (r *RowReader) Canonicalize(names []string) {
	for _, name := range names {
		if pos, ok := r.index[strings.ToLower(CleanHeader(name))]; ok && pos < len(r.names) {
			r.names[pos] = name
		}
	}
}

// Percent returns byte-based read progress as 0-100, or 0 when the
// input size is unknown.
func (r *RowReader) Percent() int { return r.counting.Percent() }

// Line returns the 1-based input line of the row most recently returned
// by Next.
func (r *RowReader) Line() int { return r.lineNo }

// Next returns the next non-empty data row, cleaned cell by cell.
// It returns io.EOF when the input is exhausted.
func (r *RowReader) Next() ([]string, error) {
	for {
		row, err := r.src.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		r.lineNo++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNo, err)
		}

		empty := true
		for i, cell := range row {
			row[i] = CleanCell(cell)
			if row[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		return row, nil
	}
}

// Fields maps a row onto its header, producing field-name keyed values
// under the cleaned header names. Cells beyond the header width are
// dropped; missing trailing cells are absent from the result.
func (r *RowReader) Fields(row []string) map[string]string {
	out := make(map[string]string, len(r.names))
	for pos, name := range r.names {
		if pos < len(row) {
			out[name] = row[pos]
		}
	}
	return out
}
