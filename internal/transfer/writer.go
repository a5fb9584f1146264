package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/sqlutil"
)

// Sink accepts decoded records destined for one table. The batched writer
// is the production sink; the estimator substitutes a counting sink.
type Sink interface {
	// Add enqueues a record, flushing automatically at the batch threshold.
	Add(ctx context.Context, rec Record) error

	// Flush writes and commits all buffered records. A flush is a durable
	// transaction boundary: records written before it are visible to
	// anything inserted after.
	Flush(ctx context.Context) error

	// InsertOne writes and commits a single record immediately, bypassing
	// the buffer. Used for replaying deferred self-referential rows.
	InsertOne(ctx context.Context, rec Record) error
}

// BatchWriter buffers records for one table and flushes them as a single
// multi-row INSERT inside one transaction when the buffer reaches the batch
// size. Every code path that finishes a table must end with Flush: a
// partial buffer is never dropped.
type BatchWriter struct {
	db        *sql.DB
	dialect   sqlutil.Dialect
	table     *schema.Table
	columns   []string // insert column order (the file's header order)
	batchSize int
	buf       []Record
	flushes   int
	rows      int64
	log       *logger.Logger
}

// NewBatchWriter creates a writer for the given table. columns defines the
// value order of every record added; the loader validates it against the
// file header before constructing the writer.
func NewBatchWriter(db *sql.DB, dialect sqlutil.Dialect, table *schema.Table, columns []string, batchSize int, log *logger.Logger) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &BatchWriter{
		db:        db,
		dialect:   dialect,
		table:     table,
		columns:   columns,
		batchSize: batchSize,
		log:       log.WithTable(table.Name),
	}
}

// Add enqueues a record and flushes when the buffer reaches the batch size.
func (w *BatchWriter) Add(ctx context.Context, rec Record) error {
	w.buf = append(w.buf, rec)
	if len(w.buf) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush executes one multi-row INSERT covering the whole buffer inside a
// transaction, commits it, and clears the buffer. Flushing an empty buffer
// is a no-op.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}

	query := w.buildInsertSQL(len(w.buf))

	args := make([]interface{}, 0, len(w.buf)*len(w.columns))
	for _, rec := range w.buf {
		for _, col := range w.columns {
			args = append(args, rec[col])
		}
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for table %s: %w", w.table.Name, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			w.log.Errorf("Failed to rollback transaction: %v", rbErr)
		}
		return fmt.Errorf("failed to insert batch into table %s: %w", w.table.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch for table %s: %w", w.table.Name, err)
	}

	w.rows += int64(len(w.buf))
	w.flushes++
	w.log.WithBatch(w.flushes).Debugf("Flushed %d rows", len(w.buf))
	w.buf = w.buf[:0]

	return nil
}

// InsertOne writes and commits a single record immediately. The buffer is
// untouched; callers flush before replaying deferred rows.
func (w *BatchWriter) InsertOne(ctx context.Context, rec Record) error {
	query := w.buildInsertSQL(1)

	args := make([]interface{}, 0, len(w.columns))
	for _, col := range w.columns {
		args = append(args, rec[col])
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for table %s: %w", w.table.Name, err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			w.log.Errorf("Failed to rollback transaction: %v", rbErr)
		}
		return fmt.Errorf("failed to insert row into table %s: %w", w.table.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit row for table %s: %w", w.table.Name, err)
	}

	w.rows++
	return nil
}

// buildInsertSQL constructs a multi-row INSERT statement for nRows rows.
// Example (mysql): INSERT INTO `users` (`id`, `name`) VALUES (?, ?), (?, ?)
func (w *BatchWriter) buildInsertSQL(nRows int) string {
	quoted := make([]string, len(w.columns))
	for i, col := range w.columns {
		quoted[i] = w.dialect.Quote(col)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(w.dialect.Quote(w.table.Name))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	param := 1
	for r := 0; r < nRows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := range w.columns {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(w.dialect.Placeholder(param))
			param++
		}
		sb.WriteString(")")
	}

	return sb.String()
}

// Len returns the number of currently buffered records.
func (w *BatchWriter) Len() int {
	return len(w.buf)
}

// Flushes returns the number of flushes executed so far.
func (w *BatchWriter) Flushes() int {
	return w.flushes
}

// RowsWritten returns the number of rows written and committed so far.
func (w *BatchWriter) RowsWritten() int64 {
	return w.rows
}
