// Package schema describes the typed shape of a model on the graph API:
// which fields exist, what scalar kind each carries, whether it is
// list-valued, and which foreign-key fields are renamed into owning-side
// relationship arguments when records are compiled.
package schema

import "fmt"

// Kind is the scalar kind of a field.
type Kind int

const (
	// KindString covers every opaque string-like scalar (String, ID,
	// enums, dates). Values are emitted JSON-quoted.
	KindString Kind = iota
	KindID
	KindInt
	KindFloat
	KindBoolean
)

// String returns the declaration-file spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindID:
		return "ID"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Boolean"
	default:
		return "String"
	}
}

// Numeric reports whether values of this kind are emitted as bare tokens
// rather than quoted strings.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat || k == KindBoolean
}

// FieldType is the declared type of one field: a scalar kind, optionally
// list-valued.
type FieldType struct {
	Kind Kind
	List bool
}

// Association renames an owning-side foreign-key field to the
// relationship's creation-operation argument. A record holding the
// target key of a to-one relation in field Field is compiled with the
// argument name add<Relation> instead of the raw field name.
type Association struct {
	Relation   string `yaml:"relation"`
	Field      string `yaml:"field"`
	OwningSide bool   `yaml:"owningSide"`
}

// Model is the type resolver for one API model. It is data supplied by
// the caller, not behavior: compilation consults it for every field of
// every record.
type Model struct {
	Name         string
	PrimaryKey   string
	Fields       map[string]FieldType
	Associations []Association

	// arguments caches owning-side field renames.
	arguments map[string]string
}

// UnknownFieldError reports a record field with no declared type.
// It is fatal: compilation of the whole batch is aborted.
type UnknownFieldError struct {
	Model string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("model %s: no type declared for field %q", e.Model, e.Field)
}

// Resolve returns the declared type for a field name.
func (m *Model) Resolve(field string) (FieldType, bool) {
	t, ok := m.Fields[field]
	return t, ok
}

// ArgumentName returns the argument name a field compiles to. For an
// owning-side association field this is the relation's creation alias;
// every other field keeps its own name.
func (m *Model) ArgumentName(field string) string {
	if m.arguments == nil {
		m.arguments = make(map[string]string, len(m.Associations))
		for _, a := range m.Associations {
			if a.OwningSide && a.Field != "" {
				m.arguments[a.Field] = "add" + Title(a.Relation)
			}
		}
	}
	if arg, ok := m.arguments[field]; ok {
		return arg
	}
	return field
}

// Validate checks the model definition for internal consistency.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if m.PrimaryKey == "" {
		return fmt.Errorf("model %s: primary key is required", m.Name)
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("model %s: no fields declared", m.Name)
	}
	if _, ok := m.Fields[m.PrimaryKey]; !ok {
		return fmt.Errorf("model %s: primary key %q is not a declared field", m.Name, m.PrimaryKey)
	}
	for _, a := range m.Associations {
		if a.Relation == "" || a.Field == "" {
			return fmt.Errorf("model %s: association needs both relation and field", m.Name)
		}
		if _, ok := m.Fields[a.Field]; !ok {
			return fmt.Errorf("model %s: association field %q is not a declared field", m.Name, a.Field)
		}
	}
	return nil
}

// Title upper-cases the first character of s, matching the graph API's
// operation naming (user -> addUser, validateUserForCreation).
func Title(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
