package lake

import (
	"fmt"
	"reflect"
	"strings"
)

// Column describes one column of a table schema, taken from the row
// struct's parquet field tag.
type Column struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	ConvertedType string `json:"convertedType,omitempty"`
	Optional      bool   `json:"optional,omitempty"`
}

// Schema is the ordered column list of a table.
type Schema []Column

// schemaOf derives the schema from T's parquet tags. Fields without a
// parquet tag are not columns.
func schemaOf[T any]() (Schema, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("row type %s is not a struct", t)
	}

	schema := make(Schema, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("parquet")
		if !ok {
			continue
		}
		col, err := parseColumnTag(tag)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
		}
		schema = append(schema, col)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("row type %s has no parquet-tagged fields", t)
	}
	return schema, nil
}

func parseColumnTag(tag string) (Column, error) {
	var col Column
	for _, part := range strings.Split(tag, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return Column{}, fmt.Errorf("malformed parquet tag entry %q", part)
		}
		switch key {
		case "name":
			col.Name = value
		case "type":
			col.Type = value
		case "convertedtype":
			col.ConvertedType = value
		case "repetitiontype":
			col.Optional = value == "OPTIONAL"
		}
	}
	if col.Name == "" || col.Type == "" {
		return Column{}, fmt.Errorf("parquet tag %q lacks name or type", tag)
	}
	return col, nil
}

// column returns the named column and whether it exists.
func (s Schema) column(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// diff lists the column-level differences of incoming against stored.
// Empty means the schemas are compatible.
func (s Schema) diff(incoming Schema) []string {
	var diffs []string
	for _, want := range s {
		got, ok := incoming.column(want.Name)
		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("column %s missing from incoming rows", want.Name))
		case got.Type != want.Type || got.ConvertedType != want.ConvertedType:
			diffs = append(diffs, fmt.Sprintf("column %s: type %s, incoming %s",
				want.Name, typeName(want), typeName(got)))
		case got.Optional != want.Optional:
			diffs = append(diffs, fmt.Sprintf("column %s: optional=%t, incoming optional=%t",
				want.Name, want.Optional, got.Optional))
		}
	}
	for _, got := range incoming {
		if _, ok := s.column(got.Name); !ok {
			diffs = append(diffs, fmt.Sprintf("column %s not in stored schema", got.Name))
		}
	}
	return diffs
}

func typeName(c Column) string {
	if c.ConvertedType != "" {
		return c.Type + "/" + c.ConvertedType
	}
	return c.Type
}
