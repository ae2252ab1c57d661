// Package csv defines the delimited-text conventions shared by the import
// and export paths: field, record and array-element delimiters, the NULL
// sentinel, and streaming readers that clean up real-world CSV files
// without loading them into memory.
package csv

import (
	"fmt"
	"strings"
)

// DefaultNullToken is the literal text denoting an absent value.
// It is distinct from an empty string in typed contexts: a column whose
// cell reads NULL (or "NULL", or nothing at all) is omitted entirely
// when compiled into an operation document.
const DefaultNullToken = "NULL"

// Dialect describes how delimited text is tokenized and written.
// The same dialect must be used for one full run: the array delimiter in
// particular is load-bearing on both sides of a round trip.
type Dialect struct {
	// Field separates columns within a record (default ",").
	Field rune

	// Record terminates a row on output (default "\n"). Input parsing
	// accepts both LF and CRLF regardless of this setting.
	Record string

	// Array separates elements of a list-valued cell (default "|").
	Array string

	// Null is the sentinel token for absent values (default "NULL").
	Null string
}

// Default returns the conventional dialect: comma fields, LF records,
// pipe-separated arrays, NULL sentinel.
func Default() Dialect {
	return Dialect{Field: ',', Record: "\n", Array: "|", Null: DefaultNullToken}
}

// Validate checks that the dialect is internally consistent.
func (d Dialect) Validate() error {
	if d.Field == 0 {
		return fmt.Errorf("field delimiter must be set")
	}
	if d.Record == "" {
		return fmt.Errorf("record delimiter must be set")
	}
	if d.Array == "" {
		return fmt.Errorf("array delimiter must be set")
	}
	if d.Null == "" {
		return fmt.Errorf("null token must be set")
	}
	if d.Array == string(d.Field) {
		return fmt.Errorf("array delimiter %q must differ from field delimiter", d.Array)
	}
	return nil
}

// IsNull reports whether a raw cell value denotes the absence of a value:
// the bare sentinel, the quote-wrapped sentinel, or the empty string.
func (d Dialect) IsNull(raw string) bool {
	return raw == "" || raw == d.Null || raw == `"`+d.Null+`"`
}

// DecodeDelimiter interprets the escape sequences allowed in delimiter
// configuration values ("\n", "\r\n", "\t"). Other values pass through
// unchanged.
func DecodeDelimiter(s string) string {
	r := strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\t`, "\t")
	return r.Replace(s)
}
