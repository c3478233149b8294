// Schema definition and the JSONL schema header.

package tabstore

import (
	"errors"
	"fmt"
	"slices"
)

var errSchemaVersionRequired = errors.New("schema version is required")

// currentVersion is the current version of the JSONL table format.
const currentVersion = "1.0"

// Column describes one declared table column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Schema is the ordered set of declared columns plus an optional primary
// key. Column order is declaration order; schema-on-write appends new
// columns as they are first seen.
type Schema struct {
	columns    []Column
	primaryKey string
	index      map[string]int
}

// Columns returns the declared columns in order.
func (s *Schema) Columns() []Column {
	return slices.Clone(s.columns)
}

// Names returns the declared column names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// KindOf returns the declared kind of a column, or false if undeclared.
func (s *Schema) KindOf(name string) (Kind, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.columns[i].Kind, true
}

// PrimaryKey returns the primary key column name, or "" if none.
func (s *Schema) PrimaryKey() string {
	return s.primaryKey
}

// add appends a column. The caller guarantees the name is not declared.
func (s *Schema) add(c Column) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.index[c.Name] = len(s.columns)
	s.columns = append(s.columns, c)
}

// clone returns an independent copy of the schema.
func (s *Schema) clone() Schema {
	c := Schema{
		columns:    slices.Clone(s.columns),
		primaryKey: s.primaryKey,
		index:      make(map[string]int, len(s.index)),
	}
	for name, i := range s.index {
		c.index[name] = i
	}
	return c
}

// schemaHeader is the first line of a JSONL table file.
type schemaHeader struct {
	Version    string   `json:"version"`
	PrimaryKey string   `json:"primary_key,omitempty"`
	Columns    []Column `json:"columns"`
}

// Validate checks that the schema header is well-formed.
func (h *schemaHeader) Validate() error {
	if h.Version == "" {
		return errSchemaVersionRequired
	}
	for i, col := range h.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d: name is required", i)
		}
		if col.Kind == "" {
			return fmt.Errorf("column %d: kind is required", i)
		}
	}
	return nil
}

func (s *Schema) header() schemaHeader {
	return schemaHeader{
		Version:    currentVersion,
		PrimaryKey: s.primaryKey,
		Columns:    slices.Clone(s.columns),
	}
}

func schemaFromHeader(h *schemaHeader) Schema {
	var s Schema
	for _, c := range h.Columns {
		if !s.Has(c.Name) {
			s.add(c)
		}
	}
	s.primaryKey = h.PrimaryKey
	return s
}
