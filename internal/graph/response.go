// Package graph is the boundary to the schema-typed graph API: the
// Executor contract, the HTTP client that implements it, and the
// response shapes the correlator and exporter consume.
package graph

import (
	"bytes"
	"encoding/json"
)

// Response is a graph API reply. Data is kept raw because its shape
// depends on the operation: alias->flag maps for validation-style APIs,
// alias->object maps for creation, connection envelopes for export reads.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []Error         `json:"errors,omitempty"`
}

// Error is one entry of a response's error list. The originating record
// is identified either by Locations (line-numbered APIs) or by the
// rejected Input echoed back, possibly nested under Extensions.
type Error struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	Extensions *Extensions    `json:"extensions,omitempty"`
}

// Location is a position inside the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column,omitempty"`
}

// Extensions carries vendor-specific error payloads.
type Extensions struct {
	Input map[string]any `json:"input,omitempty"`
}

// RejectedInput returns the argument mapping the API rejected, wherever
// the server chose to put it. Nil when the error carries none.
func (e Error) RejectedInput() map[string]any {
	if e.Input != nil {
		return e.Input
	}
	if e.Extensions != nil {
		return e.Extensions.Input
	}
	return nil
}

// Flags decodes Data as an alias->success map. Aliases whose value is
// not a JSON boolean are omitted. The second return is false when Data
// is absent entirely, which selects the line-number correlation strategy.
func (r *Response) Flags() (map[string]bool, bool) {
	if len(r.Data) == 0 || bytes.Equal(r.Data, []byte("null")) {
		return nil, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &raw); err != nil {
		return nil, false
	}
	flags := make(map[string]bool, len(raw))
	for alias, v := range raw {
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			flags[alias] = b
		}
	}
	return flags, true
}
