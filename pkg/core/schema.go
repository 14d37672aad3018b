package core

import (
	"sort"
)

// Record is one incoming row: field name to raw, loosely-typed value.
type Record map[string]any

// ColumnDescriptor is one row of a catalog "describe columns" query.
type ColumnDescriptor struct {
	Name     string
	DataType string
	// Length is the declared character length, 0 when none is declared.
	Length   int64
	Position int
}

// Column pairs a column name with its storage type.
type Column struct {
	Name string      `json:"name"`
	Type StorageType `json:"type"`
}

// ColumnSchema is an ordered snapshot of a table's live column layout.
// It is read fresh before every planning pass and never cached.
type ColumnSchema struct {
	names []string
	types map[string]StorageType
}

// NewColumnSchema builds a schema from columns in declaration order.
func NewColumnSchema(cols ...Column) *ColumnSchema {
	s := &ColumnSchema{types: make(map[string]StorageType, len(cols))}
	for _, c := range cols {
		s.Set(c.Name, c.Type)
	}
	return s
}

// Set adds a column or replaces the type of an existing one, keeping its position.
func (s *ColumnSchema) Set(name string, t StorageType) {
	if s.types == nil {
		s.types = make(map[string]StorageType)
	}
	if _, ok := s.types[name]; !ok {
		s.names = append(s.names, name)
	}
	s.types[name] = t
}

// Get returns the type of a column.
func (s *ColumnSchema) Get(name string) (StorageType, bool) {
	if s == nil {
		return StorageType{}, false
	}
	t, ok := s.types[name]
	return t, ok
}

// Len returns the number of columns.
func (s *ColumnSchema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Columns returns the columns in declaration order.
func (s *ColumnSchema) Columns() []Column {
	if s == nil {
		return nil
	}
	out := make([]Column, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, Column{Name: n, Type: s.types[n]})
	}
	return out
}

// Clone returns an independent copy.
func (s *ColumnSchema) Clone() *ColumnSchema {
	return NewColumnSchema(s.Columns()...)
}

// TypeChange describes an ALTER COLUMN ... TYPE on an existing column.
type TypeChange struct {
	From StorageType `json:"from"`
	To   StorageType `json:"to"`
}

// IsNoop reports whether the change leaves the declared type unchanged.
func (c TypeChange) IsNoop() bool { return c.From == c.To }

// SchemaDelta is the set of schema changes needed for a table to accept a record.
// It is consumed exactly once by the executor.
type SchemaDelta struct {
	// Add holds columns absent from the table, with their inferred type.
	Add map[string]StorageType `json:"add"`
	// Widen holds existing columns cast to the join of their type and the inferred type.
	Widen map[string]TypeChange `json:"widen"`
	// Retype holds null-only columns switched to the inferred type without a cast.
	Retype map[string]TypeChange `json:"retype,omitempty"`
}

// NewSchemaDelta returns an empty delta.
func NewSchemaDelta() *SchemaDelta {
	return &SchemaDelta{
		Add:    make(map[string]StorageType),
		Widen:  make(map[string]TypeChange),
		Retype: make(map[string]TypeChange),
	}
}

// IsEmpty reports whether applying the delta would change nothing.
func (d *SchemaDelta) IsEmpty() bool {
	if d == nil {
		return true
	}
	if len(d.Add) > 0 || len(d.Retype) > 0 {
		return false
	}
	for _, c := range d.Widen {
		if !c.IsNoop() {
			return false
		}
	}
	return true
}

// AddColumns returns the names in Add, sorted.
func (d *SchemaDelta) AddColumns() []string { return sortedKeys(d.Add) }

// WidenColumns returns the names in Widen, sorted.
func (d *SchemaDelta) WidenColumns() []string { return sortedKeys(d.Widen) }

// RetypeColumns returns the names in Retype, sorted.
func (d *SchemaDelta) RetypeColumns() []string { return sortedKeys(d.Retype) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
