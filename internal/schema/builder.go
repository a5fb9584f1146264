package schema

import (
	"fmt"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/sqlutil"
)

// Build constructs the schema from configuration and validates it.
// All violations are configuration errors raised before any I/O begins.
func Build(cfg *config.SchemaConfig) (*Schema, error) {
	if cfg == nil || len(cfg.Tables) == 0 {
		return nil, fmt.Errorf("schema has no tables")
	}

	s := newSchema()

	for _, tc := range cfg.Tables {
		if !sqlutil.IsValidIdentifier(tc.Name) {
			return nil, fmt.Errorf("table %q: %w", tc.Name, &sqlutil.InvalidIdentifierError{Name: tc.Name})
		}
		if _, exists := s.Table(tc.Name); exists {
			return nil, fmt.Errorf("duplicate table %q in schema", tc.Name)
		}

		t, err := buildTable(tc)
		if err != nil {
			return nil, err
		}
		s.add(t)
	}

	// Foreign key targets and self-reference rules can only be checked once
	// every table is registered.
	for _, t := range s.Tables() {
		if err := validateReferences(s, t); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func buildTable(tc config.TableConfig) (*Table, error) {
	if len(tc.Columns) == 0 {
		return nil, fmt.Errorf("table %q has no columns", tc.Name)
	}
	if len(tc.PrimaryKey) == 0 {
		return nil, fmt.Errorf("table %q has no primary key", tc.Name)
	}

	t := &Table{
		Name:       tc.Name,
		PrimaryKey: tc.PrimaryKey,
	}

	seen := make(map[string]bool, len(tc.Columns))
	for _, cc := range tc.Columns {
		if !sqlutil.IsValidIdentifier(cc.Name) {
			return nil, fmt.Errorf("table %q column %q: %w", tc.Name, cc.Name, &sqlutil.InvalidIdentifierError{Name: cc.Name})
		}
		if seen[cc.Name] {
			return nil, fmt.Errorf("table %q: duplicate column %q", tc.Name, cc.Name)
		}
		seen[cc.Name] = true

		colType, err := parseColumnType(cc.Type)
		if err != nil {
			return nil, fmt.Errorf("table %q column %q: %w", tc.Name, cc.Name, err)
		}

		col := Column{
			Name:     cc.Name,
			Type:     colType,
			Nullable: cc.Nullable,
		}
		if cc.References != nil {
			col.References = &ForeignKey{
				Table:  cc.References.Table,
				Column: cc.References.Column,
			}
		}
		t.Columns = append(t.Columns, col)
	}

	for _, pk := range tc.PrimaryKey {
		if !seen[pk] {
			return nil, fmt.Errorf("table %q: primary key column %q does not exist", tc.Name, pk)
		}
	}

	return t, nil
}

func parseColumnType(s string) (ColumnType, error) {
	switch ColumnType(s) {
	case TypeText, TypeBoolean, TypeInteger:
		return ColumnType(s), nil
	case "":
		return TypeText, nil
	default:
		return "", fmt.Errorf("unknown column type %q (must be text, boolean, or integer)", s)
	}
}

func validateReferences(s *Schema, t *Table) error {
	for _, c := range t.Columns {
		if c.References == nil {
			continue
		}

		target, ok := s.Table(c.References.Table)
		if !ok {
			return fmt.Errorf("table %q column %q references unknown table %q",
				t.Name, c.Name, c.References.Table)
		}
		if _, ok := target.Column(c.References.Column); !ok {
			return fmt.Errorf("table %q column %q references unknown column %q.%q",
				t.Name, c.Name, c.References.Table, c.References.Column)
		}

		// A self-referential foreign key must target the table's own
		// single-column primary key: the resolver tracks seen rows by that
		// key, so any other shape cannot be deferred correctly.
		if c.References.Table == t.Name {
			if !t.HasSinglePK() {
				return fmt.Errorf("self-referential table %q must have a single-column primary key", t.Name)
			}
			if c.References.Column != t.PrimaryKey[0] {
				return fmt.Errorf("table %q column %q: self-reference must target primary key %q, not %q",
					t.Name, c.Name, t.PrimaryKey[0], c.References.Column)
			}
		}
	}
	return nil
}
