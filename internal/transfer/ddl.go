package transfer

import (
	"strings"

	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/sqlutil"
)

// CreateTableSQL builds the CREATE TABLE statement for a table: columns with
// nullability, the primary key, and foreign-key constraints (including
// self-references; deferred rows only insert after their parents committed,
// so the constraint holds at every statement boundary).
func CreateTableSQL(d sqlutil.Dialect, t *schema.Table) string {
	var defs []string

	for _, col := range t.Columns {
		def := d.Quote(col.Name) + " " + d.TypeName(string(col.Type))
		if !col.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	pk := make([]string, len(t.PrimaryKey))
	for i, col := range t.PrimaryKey {
		pk[i] = d.Quote(col)
	}
	defs = append(defs, "PRIMARY KEY ("+strings.Join(pk, ", ")+")")

	for _, col := range t.Columns {
		if col.References == nil {
			continue
		}
		defs = append(defs, "FOREIGN KEY ("+d.Quote(col.Name)+") REFERENCES "+
			d.Quote(col.References.Table)+" ("+d.Quote(col.References.Column)+")")
	}

	return "CREATE TABLE " + d.Quote(t.Name) + " (" + strings.Join(defs, ", ") + ")"
}

// DropTableSQL builds the DROP TABLE statement for a table. IF EXISTS keeps
// the drop pass tolerant of tables that were never created.
func DropTableSQL(d sqlutil.Dialect, table string) string {
	return "DROP TABLE IF EXISTS " + d.Quote(table)
}
