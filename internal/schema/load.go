package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// modelFile is the YAML shape of a model definition:
//
//	model: book
//	primaryKey: id
//	fields:
//	  id: ID
//	  title: String
//	  pages: Int
//	  tags: "[String]"
//	associations:
//	  - relation: author
//	    field: authorId
//	    owningSide: true
type modelFile struct {
	Model        string            `yaml:"model"`
	PrimaryKey   string            `yaml:"primaryKey"`
	Fields       map[string]string `yaml:"fields"`
	Associations []Association     `yaml:"associations"`
}

// Load reads a model definition from a YAML file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model definition: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a YAML model definition.
func Parse(data []byte) (*Model, error) {
	var f modelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	m := &Model{
		Name:         f.Model,
		PrimaryKey:   f.PrimaryKey,
		Fields:       make(map[string]FieldType, len(f.Fields)),
		Associations: f.Associations,
	}
	if m.PrimaryKey == "" {
		m.PrimaryKey = "id"
	}

	for name, decl := range f.Fields {
		ft, err := ParseFieldType(decl)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		m.Fields[name] = ft
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseFieldType parses a type declaration such as "Int" or "[String]".
func ParseFieldType(decl string) (FieldType, error) {
	decl = strings.TrimSpace(decl)
	var ft FieldType
	if strings.HasPrefix(decl, "[") && strings.HasSuffix(decl, "]") {
		ft.List = true
		decl = strings.TrimSpace(decl[1 : len(decl)-1])
	}
	switch decl {
	case "ID":
		ft.Kind = KindID
	case "Int":
		ft.Kind = KindInt
	case "Float":
		ft.Kind = KindFloat
	case "Boolean":
		ft.Kind = KindBoolean
	case "":
		return ft, fmt.Errorf("empty type declaration")
	default:
		// Any other named scalar (String, Date, enums) is string-like.
		ft.Kind = KindString
	}
	return ft, nil
}
