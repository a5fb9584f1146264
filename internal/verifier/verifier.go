// Package verifier checks that loaded tables match their source files,
// either by row count or by an order-independent content checksum.
package verifier

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/dbsmedya/tableferry/internal/codec"
	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/sqlutil"
	"github.com/dbsmedya/tableferry/internal/store"
)

// Verification methods.
const (
	MethodCount    = "count"
	MethodChecksum = "checksum"
	MethodSkip     = "skip"
)

// Result reports the outcome of verifying one table.
type Result struct {
	Table        string
	Method       string
	FileRows     int64
	DBRows       int64
	FileChecksum uint64
	DBChecksum   uint64
	Match        bool
	Skipped      bool
}

// Verifier compares a table's source file against its loaded database rows.
type Verifier struct {
	db        *sql.DB
	dialect   sqlutil.Dialect
	store     store.Store
	delimiter rune
	method    string
	log       *logger.Logger
}

// New creates a verifier using the given method ("count", "checksum" or
// "skip").
func New(db *sql.DB, dialect sqlutil.Dialect, st store.Store, delimiter rune, method string, log *logger.Logger) *Verifier {
	return &Verifier{
		db:        db,
		dialect:   dialect,
		store:     st,
		delimiter: delimiter,
		method:    method,
		log:       log,
	}
}

// VerifyTable verifies one table. A missing source file counts as zero rows;
// a freshly created table it was skipped for should also be empty, so the
// two sides still have to agree.
func (v *Verifier) VerifyTable(ctx context.Context, table *schema.Table) (*Result, error) {
	res := &Result{Table: table.Name, Method: v.method}

	switch v.method {
	case MethodSkip:
		res.Skipped = true
		res.Match = true
		return res, nil

	case MethodCount:
		fileRows, err := v.countFileRows(ctx, table)
		if err != nil {
			return nil, err
		}
		dbRows, err := v.countDBRows(ctx, table)
		if err != nil {
			return nil, err
		}
		res.FileRows = fileRows
		res.DBRows = dbRows
		res.Match = fileRows == dbRows

	case MethodChecksum:
		fileRows, fileSum, err := v.checksumFile(ctx, table)
		if err != nil {
			return nil, err
		}
		dbRows, dbSum, err := v.checksumDB(ctx, table)
		if err != nil {
			return nil, err
		}
		res.FileRows = fileRows
		res.DBRows = dbRows
		res.FileChecksum = fileSum
		res.DBChecksum = dbSum
		res.Match = fileRows == dbRows && fileSum == dbSum

	default:
		return nil, fmt.Errorf("unknown verification method %q", v.method)
	}

	if !res.Match {
		v.log.WithTable(table.Name).Warnf("Verification mismatch: file=%d db=%d method=%s",
			res.FileRows, res.DBRows, res.Method)
	}
	return res, nil
}

// Verify verifies every table in order and returns all results. It does not
// stop at the first mismatch; callers inspect Match per result.
func (v *Verifier) Verify(ctx context.Context, tables []*schema.Table) ([]*Result, error) {
	results := make([]*Result, 0, len(tables))
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := v.VerifyTable(ctx, t)
		if err != nil {
			return results, fmt.Errorf("failed to verify table %s: %w", t.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (v *Verifier) countFileRows(ctx context.Context, table *schema.Table) (int64, error) {
	rc, err := v.store.Open(ctx, table.Name)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = v.delimiter
	r.FieldsPerRecord = -1

	// Skip the header line.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, err
	}

	var count int64
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				return count, nil
			}
			return 0, err
		}
		count++
	}
}

func (v *Verifier) countDBRows(ctx context.Context, table *schema.Table) (int64, error) {
	query := "SELECT COUNT(*) FROM " + v.dialect.Quote(table.Name)
	var count int64
	if err := v.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// checksumFile folds every data row of the table's file into one
// order-independent checksum. Rows are canonicalized through the codec so
// the same content hashes identically no matter which side it came from.
func (v *Verifier) checksumFile(ctx context.Context, table *schema.Table) (int64, uint64, error) {
	rc, err := v.store.Open(ctx, table.Name)
	if errors.Is(err, store.ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = v.delimiter
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	headerCols := make([]*schema.Column, len(header))
	for i, name := range header {
		col, ok := table.Column(name)
		if !ok {
			return 0, 0, fmt.Errorf("table %q: unknown column %q in header", table.Name, name)
		}
		headerCols[i] = col
	}

	// Position of each schema column in the header, -1 when absent.
	position := make([]int, len(table.Columns))
	for i := range position {
		position[i] = -1
	}
	for i, name := range header {
		if idx, ok := columnIndex(table, name); ok {
			position[idx] = i
		}
	}

	var rows int64
	var sum uint64
	canonical := make([]string, len(table.Columns))
	for {
		fields, err := r.Read()
		if err != nil {
			if err == io.EOF {
				return rows, sum, nil
			}
			return 0, 0, err
		}

		for i, col := range table.Columns {
			pos := position[i]
			if pos < 0 || pos >= len(fields) {
				canonical[i] = ""
				continue
			}
			canonical[i] = codec.Encode(codec.Decode(&col, fields[pos]))
		}
		sum ^= rowDigest(canonical)
		rows++
	}
}

// checksumDB folds every database row of the table into the same
// order-independent checksum. No ORDER BY is needed since XOR folding is
// commutative.
func (v *Verifier) checksumDB(ctx context.Context, table *schema.Table) (int64, uint64, error) {
	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = v.dialect.Quote(c.Name)
	}
	query := "SELECT " + strings.Join(cols, ", ") + " FROM " + v.dialect.Quote(table.Name)

	dbRows, err := v.db.QueryContext(ctx, query)
	if err != nil {
		return 0, 0, err
	}
	defer dbRows.Close()

	values := make([]interface{}, len(table.Columns))
	scanTargets := make([]interface{}, len(table.Columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	var rows int64
	var sum uint64
	canonical := make([]string, len(table.Columns))
	for dbRows.Next() {
		if err := dbRows.Scan(scanTargets...); err != nil {
			return 0, 0, err
		}
		for i, val := range values {
			canonical[i] = codec.Encode(val)
		}
		sum ^= rowDigest(canonical)
		rows++
	}
	if err := dbRows.Err(); err != nil {
		return 0, 0, err
	}
	return rows, sum, nil
}

// rowDigest hashes one canonical row to a single 64-bit value.
func rowDigest(values []string) uint64 {
	h1, h2 := murmur3.Sum128([]byte(strings.Join(values, "\x1f")))
	return h1 ^ h2
}

func columnIndex(t *schema.Table, name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}
