package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphload/graphload/internal/csv"
	"github.com/graphload/graphload/internal/schema"
)

// serializeValue renders one field value as a document token according
// to its declared type, the dialect's array delimiter, and whether the
// raw text arrived quote-wrapped.
func serializeValue(v any, ft schema.FieldType, d csv.Dialect) (string, error) {
	if ft.List {
		return serializeList(v, ft.Kind, d)
	}
	return serializeScalar(v, ft.Kind)
}

// serializeScalar handles the three scalar cases:
//
//   - numeric/boolean: bare token, unwrapping a quote wrapper if present
//   - string-like, already quote-wrapped: emitted unchanged
//   - string-like, bare: JSON-quoted
func serializeScalar(v any, kind schema.Kind) (string, error) {
	raw, isText := v.(string)
	if !isText {
		return serializeNative(v, kind)
	}

	if kind.Numeric() {
		if quoteWrapped(raw) {
			return unwrapQuotes(raw), nil
		}
		return raw, nil
	}

	if quoteWrapped(raw) {
		return raw, nil
	}
	return quoteJSON(raw), nil
}

// serializeList splits a raw list value on the array delimiter and emits
// a bracketed, comma-joined list. A quote wrapper around the whole cell
// is removed (with JSON unescaping) before splitting.
func serializeList(v any, kind schema.Kind, d csv.Dialect) (string, error) {
	raw, isText := v.(string)
	if !isText {
		return serializeNativeList(v, kind)
	}

	if quoteWrapped(raw) {
		raw = unwrapQuotes(raw)
	}

	parts := strings.Split(raw, d.Array)
	toks := make([]string, len(parts))
	for i, p := range parts {
		if kind.Numeric() {
			toks[i] = p
		} else {
			toks[i] = quoteJSON(p)
		}
	}
	return "[" + strings.Join(toks, ",") + "]", nil
}

// serializeNative renders an in-memory (non-string) value.
func serializeNative(v any, kind schema.Kind) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize value %v: %w", v, err)
	}
	s := string(b)
	if !kind.Numeric() && !quoteWrapped(s) {
		return quoteJSON(s), nil
	}
	return s, nil
}

func serializeNativeList(v any, kind schema.Kind) (string, error) {
	items, ok := v.([]any)
	if !ok {
		// A single native value in a list position becomes a one-element list.
		tok, err := serializeNative(v, kind)
		if err != nil {
			return "", err
		}
		return "[" + tok + "]", nil
	}

	toks := make([]string, len(items))
	for i, item := range items {
		tok, err := serializeNative(item, kind)
		if err != nil {
			return "", err
		}
		toks[i] = tok
	}
	return "[" + strings.Join(toks, ",") + "]", nil
}

// quoteWrapped reports whether raw is enclosed in double quotes.
func quoteWrapped(raw string) bool {
	return len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"'
}

// unwrapQuotes removes an enclosing quote wrapper, JSON-unescaping the
// content. Malformed escapes fall back to stripping the quotes verbatim.
func unwrapQuotes(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	return raw[1 : len(raw)-1]
}

// quoteJSON returns s as a JSON string literal.
func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
