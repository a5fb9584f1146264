package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/tableferry/internal/codec"
	"github.com/dbsmedya/tableferry/internal/schema"
)

// UnresolvedRefError is returned when a deferred row's self-reference is
// still unsatisfied after the replay pass. It indicates malformed input: a
// reference chain deeper than one level, or a genuinely missing parent.
type UnresolvedRefError struct {
	Table   string
	Key     string   // primary key of the offending record
	Missing []string // referenced keys that were never seen
	Row     Record
}

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("unresolved self-reference in table %q: row %q still needs [%s] (chains of self-reference deeper than one level are not supported)",
		e.Table, e.Key, strings.Join(e.Missing, ", "))
}

// Resolver orders the rows of one table so that a row is only committed
// after every row it references through a self-referential foreign key.
//
// Rows whose references are already satisfied pass straight through to the
// sink; a row referencing an already-seen key forces a flush first so the
// referenced row is durably visible. Rows referencing keys not yet seen are
// deferred and replayed once, in deferral order, after the final flush. The
// replay does not iterate to a fixpoint: a reference chain deeper than one
// level fails loudly rather than silently dropping rows.
//
// Resolver state is scoped to one table's load and must not be reused.
type Resolver struct {
	table    *schema.Table
	sink     Sink
	selfRef  []schema.Column
	pkColumn string
	seen     map[string]struct{}
	deferred []deferredRecord
	replayed int
}

type deferredRecord struct {
	rec   Record
	needs []string
}

// NewResolver creates a resolver for one table's load. For tables without
// self-referential columns it degrades to a pass-through.
func NewResolver(table *schema.Table, sink Sink) *Resolver {
	r := &Resolver{
		table:   table,
		sink:    sink,
		selfRef: table.SelfRefColumns(),
		seen:    make(map[string]struct{}),
	}
	if len(table.PrimaryKey) == 1 {
		r.pkColumn = table.PrimaryKey[0]
	}
	return r
}

// Process routes one record in input order.
func (r *Resolver) Process(ctx context.Context, rec Record) error {
	if len(r.selfRef) == 0 {
		return r.sink.Add(ctx, rec)
	}

	// The dependency set: non-NULL values of every self-referential column.
	// Multiple self-referential columns are conjunctive: all must be seen.
	var needs []string
	for _, col := range r.selfRef {
		key := codec.Key(rec[col.Name])
		if key != "" {
			needs = append(needs, key)
		}
	}

	switch {
	case len(needs) == 0:
		// NULL reference: remember this row and add as usual.
		r.markSeen(rec)
		return r.sink.Add(ctx, rec)

	case r.allSeen(needs):
		// References rows we've already seen. Flush first so the
		// referenced rows exist when this one is inserted.
		if err := r.sink.Flush(ctx); err != nil {
			return err
		}
		r.markSeen(rec)
		return r.sink.Add(ctx, rec)

	default:
		// Forward reference within the same table: hold it for the
		// replay pass. Its key is not seen until it actually inserts.
		r.deferred = append(r.deferred, deferredRecord{rec: rec, needs: needs})
		return nil
	}
}

// Finish flushes the final batch and replays deferred records. Each
// deferred record whose dependency set is now fully seen is inserted
// individually and its key marked seen, so in-order single-level chains
// resolve; anything still unsatisfied aborts with an UnresolvedRefError.
func (r *Resolver) Finish(ctx context.Context) error {
	if err := r.sink.Flush(ctx); err != nil {
		return err
	}

	for _, d := range r.deferred {
		if missing := r.missingFrom(d.needs); len(missing) > 0 {
			return &UnresolvedRefError{
				Table:   r.table.Name,
				Key:     r.recordKey(d.rec),
				Missing: missing,
				Row:     d.rec,
			}
		}
		if err := r.sink.InsertOne(ctx, d.rec); err != nil {
			return err
		}
		r.markSeen(d.rec)
		r.replayed++
	}

	r.deferred = nil
	return nil
}

// Deferred returns the number of records currently held for replay.
func (r *Resolver) Deferred() int {
	return len(r.deferred)
}

// Replayed returns the number of deferred records successfully replayed.
func (r *Resolver) Replayed() int {
	return r.replayed
}

func (r *Resolver) markSeen(rec Record) {
	if r.pkColumn == "" {
		return
	}
	r.seen[r.recordKey(rec)] = struct{}{}
}

func (r *Resolver) recordKey(rec Record) string {
	return codec.Key(rec[r.pkColumn])
}

func (r *Resolver) allSeen(needs []string) bool {
	for _, k := range needs {
		if _, ok := r.seen[k]; !ok {
			return false
		}
	}
	return true
}

func (r *Resolver) missingFrom(needs []string) []string {
	var missing []string
	for _, k := range needs {
		if _, ok := r.seen[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
