package transfer

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/sqlutil"
	"github.com/dbsmedya/tableferry/internal/store"
)

func dumperTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Build(&config.SchemaConfig{
		Tables: []config.TableConfig{
			{
				Name: "types",
				Columns: []config.ColumnConfig{
					{Name: "id", Type: "integer"},
					{Name: "identifier", Type: "text"},
					{Name: "generation_id", Type: "integer", Nullable: true},
				},
				PrimaryKey: []string{"id"},
			},
			{
				Name: "moves",
				Columns: []config.ColumnConfig{
					{Name: "id", Type: "integer"},
					{Name: "is_special", Type: "boolean"},
				},
				PrimaryKey: []string{"id"},
			},
		},
	})
	require.NoError(t, err)
	return s
}

func TestDumper_Dump(t *testing.T) {
	dir := t.TempDir()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// Tables are dumped in lexicographic name order: moves before types.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `is_special` FROM `moves` ORDER BY `id` ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_special"}).
			AddRow(int64(1), true).
			AddRow(int64(2), false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `identifier`, `generation_id` FROM `types` ORDER BY `id` ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "generation_id"}).
			AddRow(int64(1), "grass", int64(1)).
			AddRow(int64(2), "fire", nil))

	cfg := config.DefaultConfig()
	cfg.Data.Directory = dir

	dumper := NewDumper(db, sqlutil.MySQL, dumperTestSchema(t), store.NewLocal(cfg.Data), cfg, logger.NewDefault())
	result, err := dumper.Dump(context.Background(), DumpOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TablesDumped)
	assert.Equal(t, int64(4), result.RowsWritten)

	moves, err := os.ReadFile(filepath.Join(dir, "moves.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,is_special\n1,1\n2,0\n", string(moves))

	// NULL encodes as the empty field.
	types, err := os.ReadFile(filepath.Join(dir, "types.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,identifier,generation_id\n1,grass,1\n2,fire,\n", string(types))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDumper_Deterministic(t *testing.T) {
	dir := t.TempDir()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `is_special` FROM `moves` ORDER BY `id` ASC")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "is_special"}).
				AddRow(int64(1), true))
	}

	cfg := config.DefaultConfig()
	cfg.Data.Directory = dir
	dumper := NewDumper(db, sqlutil.MySQL, dumperTestSchema(t), store.NewLocal(cfg.Data), cfg, logger.NewDefault())

	_, err = dumper.Dump(context.Background(), DumpOptions{Tables: []string{"moves"}})
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "moves.csv"))
	require.NoError(t, err)

	_, err = dumper.Dump(context.Background(), DumpOptions{Tables: []string{"moves"}})
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "moves.csv"))
	require.NoError(t, err)

	assert.Equal(t, first, second, "same data must produce identical bytes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDumper_NoMatchingTables(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg := config.DefaultConfig()
	cfg.Data.Directory = t.TempDir()
	dumper := NewDumper(db, sqlutil.MySQL, dumperTestSchema(t), store.NewLocal(cfg.Data), cfg, logger.NewDefault())

	_, err = dumper.Dump(context.Background(), DumpOptions{Tables: []string{"berries"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tables match")
}
