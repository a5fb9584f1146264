package transfer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/graph"
	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/sqlutil"
	"github.com/dbsmedya/tableferry/internal/store"
)

// LoadOptions controls a single load run.
type LoadOptions struct {
	// Tables is a list of wildcard patterns selecting which tables to load.
	// Empty means all tables.
	Tables []string

	// WithDeps expands the selection to every table the selected tables
	// transitively reference.
	WithDeps bool

	// DropExisting drops the selected tables in reverse dependency order
	// before recreating them. Off by default: a plain load never destroys
	// existing data.
	DropExisting bool

	// Verbose enables per-table progress output.
	Verbose bool

	// ProgressOut receives progress output. Defaults to os.Stdout via the
	// caller; tests point it at a buffer.
	ProgressOut io.Writer
}

// TableStats records per-table load outcomes.
type TableStats struct {
	Table    string
	Rows     int64
	Deferred int
	Replayed int
	Flushes  int
	Missing  bool
}

// LoadResult summarizes a completed load run.
type LoadResult struct {
	RunID         string
	LoadOrder     []string
	TablesLoaded  int
	TablesMissing []string
	RowsWritten   int64
	RowsReplayed  int
	Flushes       int
	Duration      time.Duration
	Stats         []TableStats
}

// Loader moves data from table files into the database: tables are created
// (optionally dropped first, in reverse dependency order) and loaded in
// dependency order so every foreign-key target exists before its referents.
type Loader struct {
	db      *sql.DB
	dialect sqlutil.Dialect
	schema  *schema.Schema
	store   store.Store
	cfg     *config.Config
	log     *logger.Logger
}

// NewLoader creates a loader bound to an open database and a table store.
func NewLoader(db *sql.DB, dialect sqlutil.Dialect, s *schema.Schema, st store.Store, cfg *config.Config, log *logger.Logger) *Loader {
	return &Loader{
		db:      db,
		dialect: dialect,
		schema:  s,
		store:   st,
		cfg:     cfg,
		log:     log,
	}
}

// Load runs a full load per the options. Dependency ordering is resolved
// before any table is touched, so a cyclic selection fails without side
// effects. Missing table files are skipped, not errors.
func (l *Loader) Load(ctx context.Context, opt LoadOptions) (*LoadResult, error) {
	start := time.Now()

	runID := uuid.NewString()
	log := l.log.WithRun(runID)

	tables, err := l.selectTables(opt)
	if err != nil {
		return nil, err
	}

	g := graph.Build(tables)
	loadOrder, err := g.LoadOrder()
	if err != nil {
		return nil, err
	}
	dropOrder, err := g.DropOrder()
	if err != nil {
		return nil, err
	}

	l.warnExternalRefs(log, tables, g)

	log.Infow("Starting load",
		"tables", len(loadOrder),
		"batch_size", l.cfg.Processing.BatchSize,
		"source", l.store.Location(),
	)

	byName := make(map[string]*schema.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	if opt.DropExisting {
		if err := l.dropTables(ctx, dropOrder); err != nil {
			return nil, err
		}
	}
	if err := l.createTables(ctx, byName, loadOrder); err != nil {
		return nil, err
	}

	progress := NewProgress(opt.ProgressOut, opt.Verbose)
	result := &LoadResult{RunID: runID, LoadOrder: loadOrder}

	for _, name := range loadOrder {
		// Cancellation takes effect between tables so a committed table is
		// never left half-loaded.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		stats, err := l.loadTable(ctx, byName[name], progress, log)
		if err != nil {
			return result, fmt.Errorf("failed to load table %s: %w", name, err)
		}

		result.Stats = append(result.Stats, *stats)
		if stats.Missing {
			result.TablesMissing = append(result.TablesMissing, name)
			continue
		}
		result.TablesLoaded++
		result.RowsWritten += stats.Rows
		result.RowsReplayed += stats.Replayed
		result.Flushes += stats.Flushes
	}

	result.Duration = time.Since(start)
	log.Infow("Load complete",
		"tables_loaded", result.TablesLoaded,
		"tables_missing", len(result.TablesMissing),
		"rows", result.RowsWritten,
		"replayed", result.RowsReplayed,
		"duration", result.Duration.String(),
	)
	return result, nil
}

// selectTables resolves the option patterns against the schema, optionally
// expanding to the dependency closure.
func (l *Loader) selectTables(opt LoadOptions) ([]*schema.Table, error) {
	tables, err := l.schema.Select(opt.Tables)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables match the given patterns")
	}
	if opt.WithDeps {
		return graph.Closure(l.schema, tables)
	}
	return tables, nil
}

// warnExternalRefs logs a warning for each foreign key whose target table is
// outside the selection. The load proceeds; the referenced rows simply have
// to exist already.
func (l *Loader) warnExternalRefs(log *logger.Logger, tables []*schema.Table, g *graph.Graph) {
	for _, t := range tables {
		for _, c := range t.Columns {
			if c.References == nil || c.References.Table == t.Name {
				continue
			}
			if !g.HasNode(c.References.Table) {
				log.WithTable(t.Name).Warnf("Column %s references table %s outside the selection; existing rows must satisfy it",
					c.Name, c.References.Table)
			}
		}
	}
}

// dropTables drops every selected table in reverse dependency order.
// DROP IF EXISTS tolerates tables that are not there yet.
func (l *Loader) dropTables(ctx context.Context, dropOrder []string) error {
	for _, name := range dropOrder {
		if _, err := l.db.ExecContext(ctx, DropTableSQL(l.dialect, name)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}
	return nil
}

// createTables creates every selected table in dependency order.
func (l *Loader) createTables(ctx context.Context, byName map[string]*schema.Table, loadOrder []string) error {
	for _, name := range loadOrder {
		if _, err := l.db.ExecContext(ctx, CreateTableSQL(l.dialect, byName[name])); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
	}
	return nil
}

// loadTable streams one table's file through the resolver into the batched
// writer. A missing file marks the table missing and is not an error.
func (l *Loader) loadTable(ctx context.Context, table *schema.Table, progress *Progress, log *logger.Logger) (*TableStats, error) {
	stats := &TableStats{Table: table.Name}
	progress.Start(table.Name)

	rc, err := l.store.Open(ctx, table.Name)
	if errors.Is(err, store.ErrNotFound) {
		progress.Done("missing?")
		log.WithTable(table.Name).Debugf("No file at %s, skipping", l.store.Location())
		stats.Missing = true
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = l.delimiter()
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			// A header-only or empty file loads zero rows.
			progress.Done("ok")
			return stats, nil
		}
		return nil, err
	}
	if err := validateHeader(table, header); err != nil {
		return nil, err
	}

	writer := NewBatchWriter(l.db, l.dialect, table, header, l.cfg.Processing.BatchSize, log)
	resolver := NewResolver(table, writer)

	for {
		fields, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		rec, err := decodeRow(table, header, fields)
		if err != nil {
			return nil, err
		}
		if err := resolver.Process(ctx, rec); err != nil {
			return nil, err
		}
	}

	deferred := resolver.Deferred()
	if err := resolver.Finish(ctx); err != nil {
		return nil, err
	}

	stats.Rows = writer.RowsWritten()
	stats.Deferred = deferred
	stats.Replayed = resolver.Replayed()
	stats.Flushes = writer.Flushes()

	progress.Done("ok")
	log.WithTable(table.Name).Debugw("Table loaded",
		"rows", stats.Rows,
		"flushes", stats.Flushes,
		"replayed", stats.Replayed,
	)
	return stats, nil
}

func (l *Loader) delimiter() rune {
	if l.cfg.Data.Delimiter == "" {
		return ','
	}
	return []rune(l.cfg.Data.Delimiter)[0]
}
