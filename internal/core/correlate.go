package core

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/graphload/graphload/internal/graph"
)

// Correlate maps an API response's partial failures back to the exact
// originating records, keyed by global record ordinal. An absent error
// list means full success and yields an empty report.
//
// Two response shapes are supported:
//
//   - flag + input matching, when the response carries a data section of
//     alias->flag pairs: every false alias's block is reparsed from the
//     document and matched by deep equality against the inputs echoed in
//     the error list (the error list is not index-aligned with aliases);
//   - line numbers, when there is no data section: each error's first
//     location line identifies the record block directly (line 1 of the
//     document is the operation keyword).
func Correlate(document string, resp *graph.Response, batchSize, batchNumber int) FailureReport {
	report := FailureReport{}
	if resp == nil || len(resp.Errors) == 0 {
		return report
	}

	if flags, ok := resp.Flags(); ok {
		correlateByInput(report, document, flags, resp.Errors, batchSize, batchNumber)
		return report
	}
	correlateByLine(report, document, resp.Errors, batchSize, batchNumber)
	return report
}

// correlateByInput pairs failing aliases with errors by comparing each
// alias's reconstructed argument mapping against the rejected input each
// error carries. Aliases are visited in document order and each error is
// consumed at most once, so duplicate-argument records resolve to
// distinct errors in order of appearance.
func correlateByInput(report FailureReport, document string, flags map[string]bool, errs []graph.Error, batchSize, batchNumber int) {
	failing := make([]int, 0, len(flags))
	for alias, ok := range flags {
		if ok {
			continue
		}
		if local, valid := aliasIndex(alias); valid {
			failing = append(failing, local)
		}
	}
	sort.Ints(failing)

	consumed := make([]bool, len(errs))
	for _, local := range failing {
		args := reparseBlock(document, local)
		if args == nil {
			continue
		}
		for i, e := range errs {
			if consumed[i] {
				continue
			}
			input := e.RejectedInput()
			if input == nil || !reflect.DeepEqual(normalize(input), args) {
				continue
			}
			consumed[i] = true
			// No sub-query text here: the pairing is by value, not position.
			report[GlobalOrdinal(batchSize, batchNumber, local-1)] = Failure{Error: e}
			break
		}
	}
}

// correlateByLine attributes each error to the record whose block sits
// on the reported document line. Line 1 is the keyword line and the
// last line is the closing brace, so block k lives on line k+1.
func correlateByLine(report FailureReport, document string, errs []graph.Error, batchSize, batchNumber int) {
	lines := strings.Split(document, "\n")
	for _, e := range errs {
		if len(e.Locations) == 0 {
			continue
		}
		local := e.Locations[0].Line - 1 // 1-based record position
		if local < 1 || local >= len(lines)-1 {
			continue
		}
		report[GlobalOrdinal(batchSize, batchNumber, local-1)] = Failure{
			Query: lines[local],
			Error: e,
		}
	}
}

// aliasIndex extracts the 1-based record position from an alias (n3 -> 3).
func aliasIndex(alias string) (int, bool) {
	if !strings.HasPrefix(alias, "n") {
		return 0, false
	}
	n, err := strconv.Atoi(alias[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// reparseBlock reconstructs the argument key->value mapping of the block
// at 1-based position local by re-tokenizing its parenthesized argument
// list from the document text.
func reparseBlock(document string, local int) map[string]any {
	lines := strings.Split(document, "\n")
	if local < 1 || local >= len(lines) {
		return nil
	}
	line := lines[local]

	open := strings.Index(line, "(")
	end := strings.LastIndex(line, ")")
	if open < 0 || end < open {
		return nil
	}

	args := make(map[string]any)
	for _, pair := range splitArgs(line[open+1 : end]) {
		key, tok, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		args[key] = decodeToken(tok)
	}
	return args
}

// splitArgs splits a compiled argument list on top-level commas,
// honoring quoted strings and bracketed lists.
func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	var (
		parts   []string
		start   int
		depth   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case inQuote:
			if c == '\\' {
				i++
			} else if c == '"' {
				inQuote = false
			}
		case c == '"':
			inQuote = true
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// decodeToken value-decodes one argument token. Compiled tokens are
// valid JSON (numbers, booleans, quoted strings, bracketed lists); a
// token that fails to decode is kept as raw text.
func decodeToken(tok string) any {
	var v any
	if err := json.Unmarshal([]byte(tok), &v); err != nil {
		return tok
	}
	return v
}

// normalize round-trips a decoded JSON value so that reflect.DeepEqual
// compares like against like (json.Number vs float64 and the like never
// arise from our own decoding, but error inputs come from the caller's
// decoder).
func normalize(m map[string]any) map[string]any {
	b, err := json.Marshal(m)
	if err != nil {
		return m
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return m
	}
	return out
}
