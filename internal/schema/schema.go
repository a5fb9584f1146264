// Package schema provides the immutable table graph tableferry operates on.
//
// The schema is built once from configuration and passed explicitly to every
// component; there is no process-wide registry.
package schema

import (
	"github.com/elliotchance/orderedmap/v2"
)

// ColumnType tags the semantic type of a column for codec and DDL purposes.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeBoolean ColumnType = "boolean"
	TypeInteger ColumnType = "integer"
)

// ForeignKey identifies the target of a foreign-key column.
type ForeignKey struct {
	Table  string
	Column string
}

// Column describes a single table column.
type Column struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	References *ForeignKey // nil when the column carries no foreign key
}

// Table describes a table: its ordered columns and primary key.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string

	colIndex map[string]int
}

// Column returns the column with the given name, if present.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.colIndex[name]
	if !ok {
		return nil, false
	}
	return &t.Columns[i], true
}

// ColumnNames returns the column names in definition order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// SelfRefColumns returns the columns whose foreign key targets this same table.
func (t *Table) SelfRefColumns() []Column {
	var cols []Column
	for _, c := range t.Columns {
		if c.References != nil && c.References.Table == t.Name {
			cols = append(cols, c)
		}
	}
	return cols
}

// HasSinglePK reports whether the table has a single-column primary key.
func (t *Table) HasSinglePK() bool {
	return len(t.PrimaryKey) == 1
}

// Schema is the full set of tables, in definition order.
type Schema struct {
	tables *orderedmap.OrderedMap[string, *Table]
}

func newSchema() *Schema {
	return &Schema{tables: orderedmap.NewOrderedMap[string, *Table]()}
}

func (s *Schema) add(t *Table) {
	t.colIndex = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.colIndex[c.Name] = i
	}
	s.tables.Set(t.Name, t)
}

// Table returns the table with the given name, if present.
func (s *Schema) Table(name string) (*Table, bool) {
	return s.tables.Get(name)
}

// TableNames returns all table names in definition order.
func (s *Schema) TableNames() []string {
	return s.tables.Keys()
}

// Tables returns all tables in definition order.
func (s *Schema) Tables() []*Table {
	out := make([]*Table, 0, s.tables.Len())
	for el := s.tables.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Len returns the number of tables in the schema.
func (s *Schema) Len() int {
	return s.tables.Len()
}
