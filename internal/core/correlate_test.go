package core

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/graphload/graphload/internal/graph"
)

func decodeResponse(t *testing.T, body string) *graph.Response {
	t.Helper()
	var resp graph.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &resp
}

func TestCorrelateNoErrors(t *testing.T) {
	resp := decodeResponse(t, `{"data":{"n1":true}}`)
	report := Correlate("mutation{\nn1: addBook(title:\"x\"){id}\n}", resp, 10, 0)
	if len(report) != 0 {
		t.Errorf("report = %v, want empty", report)
	}

	if got := Correlate("doc", nil, 10, 0); len(got) != 0 {
		t.Errorf("nil response: report = %v, want empty", got)
	}
}

func TestCorrelateByInput(t *testing.T) {
	doc := "{\n" +
		"n1: validateBookForCreation(f:1)\n" +
		"n2: validateBookForCreation(f:2)\n" +
		"}"
	resp := decodeResponse(t, `{
		"data": {"n1": false, "n2": true},
		"errors": [{"message": "bad f", "input": {"f": 1}}]
	}`)

	report := Correlate(doc, resp, 10, 0)
	if len(report) != 1 {
		t.Fatalf("report has %d entries, want 1", len(report))
	}
	f, ok := report[1]
	if !ok {
		t.Fatalf("report keys = %v, want ordinal 1", report)
	}
	if f.Error.Message != "bad f" {
		t.Errorf("Failure.Error.Message = %q, want %q", f.Error.Message, "bad f")
	}
	if f.Query != "" {
		t.Errorf("input-matched failure should carry no sub-query text, got %q", f.Query)
	}
}

func TestCorrelateByInputNotIndexAligned(t *testing.T) {
	// The error list order does not match the alias order; matching is
	// by value.
	doc := "{\n" +
		`n1: validateBookForCreation(title:"a")` + "\n" +
		`n2: validateBookForCreation(title:"b")` + "\n" +
		`n3: validateBookForCreation(title:"c")` + "\n" +
		"}"
	resp := decodeResponse(t, `{
		"data": {"n1": false, "n2": true, "n3": false},
		"errors": [
			{"message": "c rejected", "extensions": {"input": {"title": "c"}}},
			{"message": "a rejected", "input": {"title": "a"}}
		]
	}`)

	report := Correlate(doc, resp, 5, 1)
	if len(report) != 2 {
		t.Fatalf("report has %d entries, want 2", len(report))
	}
	// Batch 1 of size 5: n1 -> ordinal 6, n3 -> ordinal 8.
	if got := report[6].Error.Message; got != "a rejected" {
		t.Errorf("ordinal 6 message = %q, want %q", got, "a rejected")
	}
	if got := report[8].Error.Message; got != "c rejected" {
		t.Errorf("ordinal 8 message = %q, want %q", got, "c rejected")
	}
}

func TestCorrelateByInputDuplicateRecords(t *testing.T) {
	// Two identical records: aliases are matched in document order and
	// each error is consumed once.
	doc := "{\n" +
		`n1: validateBookForCreation(title:"dup")` + "\n" +
		`n2: validateBookForCreation(title:"dup")` + "\n" +
		"}"
	resp := decodeResponse(t, `{
		"data": {"n1": false, "n2": false},
		"errors": [
			{"message": "first", "input": {"title": "dup"}},
			{"message": "second", "input": {"title": "dup"}}
		]
	}`)

	report := Correlate(doc, resp, 10, 0)
	if len(report) != 2 {
		t.Fatalf("report has %d entries, want 2", len(report))
	}
	if report[1].Error.Message != "first" || report[2].Error.Message != "second" {
		t.Errorf("duplicate pairing = %q/%q, want first/second",
			report[1].Error.Message, report[2].Error.Message)
	}
}

func TestCorrelateByLine(t *testing.T) {
	doc := "mutation{\n" +
		`n1: addBook(title:"a"){id}` + "\n" +
		`n2: addBook(title:"b"){id}` + "\n" +
		"}"
	resp := decodeResponse(t, `{
		"errors": [{"message": "boom", "locations": [{"line": 2, "column": 1}]}]
	}`)

	report := Correlate(doc, resp, 10, 0)
	if len(report) != 1 {
		t.Fatalf("report has %d entries, want 1", len(report))
	}
	f, ok := report[1]
	if !ok {
		t.Fatalf("report keys = %v, want ordinal 1", report)
	}
	if f.Query != `n1: addBook(title:"a"){id}` {
		t.Errorf("Failure.Query = %q", f.Query)
	}
	if f.Error.Message != "boom" {
		t.Errorf("Failure.Error.Message = %q, want %q", f.Error.Message, "boom")
	}
}

func TestCorrelateByLineLaterBatch(t *testing.T) {
	doc := "mutation{\n" +
		`n1: addBook(title:"a"){id}` + "\n" +
		`n2: addBook(title:"b"){id}` + "\n" +
		"}"
	resp := decodeResponse(t, `{
		"errors": [{"message": "boom", "locations": [{"line": 3}]}]
	}`)

	// Batch 2 of size 4: local position 2 -> global ordinal 10.
	report := Correlate(doc, resp, 4, 2)
	if _, ok := report[10]; !ok {
		t.Fatalf("report keys = %v, want ordinal 10", keys(report))
	}
}

func TestCorrelateByLineClosingBrace(t *testing.T) {
	doc := "mutation{\n" +
		`n1: addBook(title:"a"){id}` + "\n" +
		`n2: addBook(title:"b"){id}` + "\n" +
		"}"
	resp := decodeResponse(t, `{
		"errors": [{"message": "document rejected", "locations": [{"line": 4}]}]
	}`)

	// Line 4 is the closing brace; it names no record.
	if report := Correlate(doc, resp, 10, 0); len(report) != 0 {
		t.Errorf("report keys = %v, want empty for a brace-line error", keys(report))
	}
}

func keys(r FailureReport) []int {
	out := make([]int, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

func TestReparseBlock(t *testing.T) {
	doc := "mutation{\n" +
		`n1: addBook(title:"a, b",pages:3,tags:["x","y"],ok:true){id}` + "\n" +
		"}"

	got := reparseBlock(doc, 1)
	want := map[string]any{
		"title": "a, b",
		"pages": float64(3),
		"tags":  []any{"x", "y"},
		"ok":    true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reparseBlock() = %v, want %v", got, want)
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "a:1", want: []string{"a:1"}},
		{name: "two", input: "a:1,b:2", want: []string{"a:1", "b:2"}},
		{name: "comma in string", input: `a:"x,y",b:2`, want: []string{`a:"x,y"`, "b:2"}},
		{name: "comma in list", input: "a:[1,2],b:2", want: []string{"a:[1,2]", "b:2"}},
		{name: "escaped quote", input: `a:"x\",y",b:2`, want: []string{`a:"x\",y"`, "b:2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitArgs(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitArgs(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAliasIndex(t *testing.T) {
	tests := []struct {
		alias string
		want  int
		ok    bool
	}{
		{alias: "n1", want: 1, ok: true},
		{alias: "n42", want: 42, ok: true},
		{alias: "x1", ok: false},
		{alias: "n", ok: false},
		{alias: "n0", ok: false},
	}

	for _, tt := range tests {
		got, ok := aliasIndex(tt.alias)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("aliasIndex(%q) = %d, %v; want %d, %v", tt.alias, got, ok, tt.want, tt.ok)
		}
	}
}
