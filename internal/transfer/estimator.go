package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/dbsmedya/tableferry/internal/config"
	"github.com/dbsmedya/tableferry/internal/graph"
	"github.com/dbsmedya/tableferry/internal/logger"
	"github.com/dbsmedya/tableferry/internal/schema"
	"github.com/dbsmedya/tableferry/internal/store"
)

// countingSink implements Sink without a database. It mirrors the batched
// writer's flush behavior so a dry run predicts the real flush count.
type countingSink struct {
	batchSize int
	buffered  int
	flushes   int
	rows      int64
	replays   int
}

func newCountingSink(batchSize int) *countingSink {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &countingSink{batchSize: batchSize}
}

func (s *countingSink) Add(ctx context.Context, rec Record) error {
	s.buffered++
	if s.buffered >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

func (s *countingSink) Flush(ctx context.Context) error {
	if s.buffered == 0 {
		return nil
	}
	s.rows += int64(s.buffered)
	s.flushes++
	s.buffered = 0
	return nil
}

func (s *countingSink) InsertOne(ctx context.Context, rec Record) error {
	s.rows++
	s.replays++
	return nil
}

// EstimateResult summarizes a dry run: what a load would do, computed from
// the files alone without touching the database.
type EstimateResult struct {
	LoadOrder     []string
	TablesMissing []string
	RowsTotal     int64
	FlushesTotal  int
	Stats         []TableStats
}

// Estimator reads table files and predicts a load's work: row counts, flush
// counts, and deferred self-references. Unresolvable reference chains are
// reported here the same way a real load would fail on them.
type Estimator struct {
	schema *schema.Schema
	store  store.Store
	cfg    *config.Config
	log    *logger.Logger
}

// NewEstimator creates a dry-run estimator over the given table store.
func NewEstimator(s *schema.Schema, st store.Store, cfg *config.Config, log *logger.Logger) *Estimator {
	return &Estimator{schema: s, store: st, cfg: cfg, log: log}
}

// Estimate performs the dry run for the selected tables.
func (e *Estimator) Estimate(ctx context.Context, patterns []string, withDeps bool) (*EstimateResult, error) {
	tables, err := e.schema.Select(patterns)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables match the given patterns")
	}
	if withDeps {
		tables, err = graph.Closure(e.schema, tables)
		if err != nil {
			return nil, err
		}
	}

	g := graph.Build(tables)
	loadOrder, err := g.LoadOrder()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*schema.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	result := &EstimateResult{LoadOrder: loadOrder}
	for _, name := range loadOrder {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		stats, err := e.estimateTable(ctx, byName[name])
		if err != nil {
			return result, fmt.Errorf("failed to estimate table %s: %w", name, err)
		}
		result.Stats = append(result.Stats, *stats)
		if stats.Missing {
			result.TablesMissing = append(result.TablesMissing, name)
			continue
		}
		result.RowsTotal += stats.Rows
		result.FlushesTotal += stats.Flushes
	}
	return result, nil
}

func (e *Estimator) estimateTable(ctx context.Context, table *schema.Table) (*TableStats, error) {
	stats := &TableStats{Table: table.Name}

	rc, err := e.store.Open(ctx, table.Name)
	if errors.Is(err, store.ErrNotFound) {
		stats.Missing = true
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = e.delimiter()
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return stats, nil
		}
		return nil, err
	}
	if err := validateHeader(table, header); err != nil {
		return nil, err
	}

	sink := newCountingSink(e.cfg.Processing.BatchSize)
	resolver := NewResolver(table, sink)

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

	stats.Rows = sink.rows
	stats.Deferred = deferred
	stats.Replayed = resolver.Replayed()
	stats.Flushes = sink.flushes
	return stats, nil
}

func (e *Estimator) delimiter() rune {
	if e.cfg.Data.Delimiter == "" {
		return ','
	}
	return []rune(e.cfg.Data.Delimiter)[0]
}
