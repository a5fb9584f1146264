package sqlutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects identifier quoting, placeholder style, and DDL type names
// for a target database.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor returns the Dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Quote quotes an identifier (table name, column name) for the dialect.
// Existing quote characters are escaped by doubling them.
// Example (mysql): "my_table" -> "`my_table`"
func (d Dialect) Quote(name string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteSafe quotes an identifier after validating it.
// Returns an error if the identifier contains invalid characters.
// Use this when identifiers might come from untrusted sources.
func (d Dialect) QuoteSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return d.Quote(name), nil
}

// Placeholder returns the parameter placeholder for the n-th (1-based)
// bind parameter of a statement.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// TypeName maps a column type tag (text, boolean, integer) to the DDL
// type name for the dialect.
func (d Dialect) TypeName(columnType string) string {
	switch columnType {
	case "boolean":
		if d == SQLite {
			return "INTEGER"
		}
		return "BOOLEAN"
	case "integer":
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	default:
		return "TEXT"
	}
}

// DriverName returns the database/sql driver name registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite3"
	default:
		return "mysql"
	}
}
