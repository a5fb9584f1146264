package verifier

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

func verifierTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Build(&config.SchemaConfig{
		Tables: []config.TableConfig{
			{
				Name: "types",
				Columns: []config.ColumnConfig{
					{Name: "id", Type: "integer"},
					{Name: "identifier", Type: "text"},
					{Name: "is_special", Type: "boolean", Nullable: true},
				},
				PrimaryKey: []string{"id"},
			},
		},
	})
	require.NoError(t, err)
	return s
}

func newVerifierTest(t *testing.T, method, fileContent string) (*Verifier, sqlmock.Sqlmock, *schema.Table) {
	t.Helper()

	dir := t.TempDir()
	if fileContent != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "types.csv"), []byte(fileContent), 0644))
	}

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.NewLocal(config.DataConfig{Directory: dir})
	v := New(db, sqlutil.MySQL, st, ',', method, logger.NewDefault())

	table, _ := verifierTestSchema(t).Table("types")
	return v, mock, table
}

func TestVerifyTable_CountMatch(t *testing.T) {
	v, mock, table := newVerifierTest(t, MethodCount, "id,identifier,is_special\n1,grass,0\n2,fire,1\n")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `types`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	res, err := v.VerifyTable(context.Background(), table)
	require.NoError(t, err)

	assert.True(t, res.Match)
	assert.Equal(t, int64(2), res.FileRows)
	assert.Equal(t, int64(2), res.DBRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTable_CountMismatch(t *testing.T) {
	v, mock, table := newVerifierTest(t, MethodCount, "id,identifier,is_special\n1,grass,0\n2,fire,1\n")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `types`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	res, err := v.VerifyTable(context.Background(), table)
	require.NoError(t, err)

	assert.False(t, res.Match)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTable_CountMissingFileIsZero(t *testing.T) {
	v, mock, table := newVerifierTest(t, MethodCount, "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `types`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	res, err := v.VerifyTable(context.Background(), table)
	require.NoError(t, err)

	assert.True(t, res.Match)
	assert.Equal(t, int64(0), res.FileRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTable_ChecksumMatch_OrderIndependent(t *testing.T) {
	v, mock, table := newVerifierTest(t, MethodChecksum, "id,identifier,is_special\n1,grass,0\n2,fire,1\n")

	// Database returns the rows in the opposite order; the checksum folds
	// rows commutatively so order cannot matter.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `identifier`, `is_special` FROM `types`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "is_special"}).
			AddRow(int64(2), "fire", int64(1)).
			AddRow(int64(1), "grass", int64(0)))

	res, err := v.VerifyTable(context.Background(), table)
	require.NoError(t, err)

	assert.True(t, res.Match)
	assert.Equal(t, res.FileChecksum, res.DBChecksum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTable_ChecksumMismatch(t *testing.T) {
	v, mock, table := newVerifierTest(t, MethodChecksum, "id,identifier,is_special\n1,grass,0\n")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `identifier`, `is_special` FROM `types`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "is_special"}).
			AddRow(int64(1), "water", int64(0)))

	res, err := v.VerifyTable(context.Background(), table)
	require.NoError(t, err)

	assert.False(t, res.Match)
	assert.NotEqual(t, res.FileChecksum, res.DBChecksum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTable_ChecksumCanonicalizesNulls(t *testing.T) {
	// Empty nullable field in the file must hash the same as SQL NULL.
	v, mock, table := newVerifierTest(t, MethodChecksum, "id,identifier,is_special\n1,grass,\n")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `identifier`, `is_special` FROM `types`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "is_special"}).
			AddRow(int64(1), "grass", nil))

	res, err := v.VerifyTable(context.Background(), table)
	require.NoError(t, err)

	assert.True(t, res.Match)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTable_Skip(t *testing.T) {
	v, mock, table := newVerifierTest(t, MethodSkip, "")

	res, err := v.VerifyTable(context.Background(), table)
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.True(t, res.Match)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTable_UnknownMethod(t *testing.T) {
	v, _, table := newVerifierTest(t, "sha256", "")

	_, err := v.VerifyTable(context.Background(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown verification method")
}

func TestVerify_All(t *testing.T) {
	v, mock, table := newVerifierTest(t, MethodCount, "id,identifier,is_special\n1,grass,0\n")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `types`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	results, err := v.Verify(context.Background(), []*schema.Table{table})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Match)
	assert.NoError(t, mock.ExpectationsWereMet())
}
