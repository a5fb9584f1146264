package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]Dialect{
		"mysql":    MySQL,
		"postgres": Postgres,
		"sqlite":   SQLite,
	} {
		d, err := DialectFor(driver)
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}

	_, err := DialectFor("mssql")
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`pokemon`", MySQL.Quote("pokemon"))
	assert.Equal(t, "`weird``name`", MySQL.Quote("weird`name"))
	assert.Equal(t, `"pokemon"`, Postgres.Quote("pokemon"))
	assert.Equal(t, `"weird""name"`, Postgres.Quote(`weird"name`))
	assert.Equal(t, `"pokemon"`, SQLite.Quote("pokemon"))
}

func TestQuoteSafe(t *testing.T) {
	quoted, err := MySQL.QuoteSafe("pokemon_moves")
	require.NoError(t, err)
	assert.Equal(t, "`pokemon_moves`", quoted)

	_, err = MySQL.QuoteSafe("drop table;--")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid identifier")
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", MySQL.Placeholder(1))
	assert.Equal(t, "?", MySQL.Placeholder(7))
	assert.Equal(t, "$1", Postgres.Placeholder(1))
	assert.Equal(t, "$12", Postgres.Placeholder(12))
	assert.Equal(t, "?", SQLite.Placeholder(3))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "BOOLEAN", MySQL.TypeName("boolean"))
	assert.Equal(t, "BIGINT", MySQL.TypeName("integer"))
	assert.Equal(t, "TEXT", MySQL.TypeName("text"))

	assert.Equal(t, "INTEGER", SQLite.TypeName("boolean"))
	assert.Equal(t, "INTEGER", SQLite.TypeName("integer"))
	assert.Equal(t, "TEXT", SQLite.TypeName("text"))
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "mysql", MySQL.DriverName())
	assert.Equal(t, "pgx", Postgres.DriverName())
	assert.Equal(t, "sqlite3", SQLite.DriverName())
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("pokemon_moves_2"))
	assert.False(t, IsValidIdentifier(""))
	assert.False(t, IsValidIdentifier("pokemon moves"))
	assert.False(t, IsValidIdentifier("pokemon;drop"))
}
