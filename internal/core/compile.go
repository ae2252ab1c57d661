package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphload/graphload/internal/csv"
	"github.com/graphload/graphload/internal/schema"
)

// Compile turns one batch into a single composite operation document.
//
// Each record becomes one aliased block on its own text line:
//
//	mutation{
//	n1: addBook(title:"x",pages:12){id}
//	n2: addBook(title:"y"){id}
//	}
//
// The one-block-per-line layout is load-bearing: line-numbered API
// errors are mapped back to records by document line, so nothing else
// may introduce newlines.
func Compile(batch Batch, model *schema.Model, d csv.Dialect, mode Mode) (string, error) {
	var b strings.Builder
	if mode == ModeCreate {
		b.WriteString("mutation{\n")
	} else {
		b.WriteString("{\n")
	}

	for i, rec := range batch.Records {
		block, err := compileRecord(rec, i, model, d, mode)
		if err != nil {
			return "", err
		}
		b.WriteString(block)
		b.WriteByte('\n')
	}

	b.WriteByte('}')
	return b.String(), nil
}

// compileRecord emits one aliased operation block. local is the
// zero-based index of the record within its batch; the alias is 1-based.
func compileRecord(rec Record, local int, model *schema.Model, d csv.Dialect, mode Mode) (string, error) {
	op := "add" + schema.Title(model.Name)
	if mode == ModeValidate {
		op = "validate" + schema.Title(model.Name) + "ForCreation"
	}

	// Deterministic argument order keeps documents reproducible.
	fields := make([]string, 0, len(rec))
	for name := range rec {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	args := make([]string, 0, len(fields))
	for _, name := range fields {
		ft, ok := model.Resolve(name)
		if !ok {
			return "", &schema.UnknownFieldError{Model: model.Name, Field: name}
		}

		value := rec[name]
		if elided(value, d) {
			continue
		}

		tok, err := serializeValue(value, ft, d)
		if err != nil {
			return "", fmt.Errorf("record %d, field %q: %w", local+1, name, err)
		}
		args = append(args, model.ArgumentName(name)+":"+tok)
	}

	block := fmt.Sprintf("n%d: %s(%s)", local+1, op, strings.Join(args, ","))
	if mode == ModeCreate {
		block += "{" + model.PrimaryKey + "}"
	}
	return block, nil
}

// elided reports whether a value is omitted entirely from the document:
// a nil native value, or a textual value equal to the null sentinel in
// any of its spellings.
func elided(v any, d csv.Dialect) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return d.IsNull(s)
	}
	return false
}
