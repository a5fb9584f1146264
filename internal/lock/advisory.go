// Package lock provides advisory locking to guard the single-writer
// assumption during loads.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/dbsmedya/tableferry/internal/sqlutil"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another instance is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// TimeoutShort is the lock acquisition timeout in seconds, suitable for
// fast-failing duplicate load detection.
const TimeoutShort = 1

// WriteLock is an advisory lock preventing two tableferry instances from
// loading into the same database concurrently. MySQL uses GET_LOCK,
// PostgreSQL uses pg_try_advisory_lock on the FNV hash of the lock name,
// and SQLite is a no-op because the file lock is inherent.
type WriteLock struct {
	db       *sql.DB
	dialect  sqlutil.Dialect
	lockName string
	held     bool
}

// NewWriteLock creates a new advisory lock with the given name.
// The lock is not acquired until Acquire is called.
func NewWriteLock(db *sql.DB, dialect sqlutil.Dialect, lockName string) *WriteLock {
	return &WriteLock{
		db:       db,
		dialect:  dialect,
		lockName: lockName,
		held:     false,
	}
}

// NewLoadLock creates the advisory lock guarding loads into the named
// database. The lock name follows the format "tableferry:load:{database}".
func NewLoadLock(db *sql.DB, dialect sqlutil.Dialect, databaseName string) *WriteLock {
	return NewWriteLock(db, dialect, GenerateLockName(databaseName))
}

// GenerateLockName creates a consistent lock name for a load target.
// Problematic characters are replaced with underscores to avoid lock name
// conflicts.
func GenerateLockName(databaseName string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, databaseName)

	return fmt.Sprintf("tableferry:load:%s", sanitized)
}

// Acquire attempts to acquire the advisory lock with the specified timeout.
// Returns true if the lock was acquired, false if the timeout was reached.
//
// MySQL GET_LOCK() returns 1 on success, 0 on timeout, NULL on error.
// PostgreSQL pg_try_advisory_lock() returns a boolean immediately; the
// timeout parameter is ignored there.
func (w *WriteLock) Acquire(ctx context.Context, timeoutSeconds int) (bool, error) {
	if w.held {
		return true, nil // Already holding the lock
	}

	switch w.dialect {
	case sqlutil.MySQL:
		var result sql.NullInt64
		err := w.db.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", w.lockName, timeoutSeconds).Scan(&result)
		if err != nil {
			return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
		}
		if !result.Valid {
			return false, fmt.Errorf("GET_LOCK returned NULL for lock %q (possible database error)", w.lockName)
		}
		switch result.Int64 {
		case 1:
			w.held = true
			return true, nil
		case 0:
			return false, nil
		default:
			return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
		}

	case sqlutil.Postgres:
		var acquired bool
		err := w.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", w.lockKey()).Scan(&acquired)
		if err != nil {
			return false, fmt.Errorf("failed to execute pg_try_advisory_lock: %w", err)
		}
		if acquired {
			w.held = true
		}
		return acquired, nil

	default:
		// SQLite: the database file lock already serializes writers.
		w.held = true
		return true, nil
	}
}

// Release releases the advisory lock.
// Returns true if the lock was released, false if the lock was not held.
func (w *WriteLock) Release(ctx context.Context) (bool, error) {
	if !w.held {
		return false, nil
	}

	switch w.dialect {
	case sqlutil.MySQL:
		var result sql.NullInt64
		err := w.db.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", w.lockName).Scan(&result)
		if err != nil {
			return false, fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
		}
		w.held = false
		if !result.Valid {
			return false, fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", w.lockName)
		}
		return result.Int64 == 1, nil

	case sqlutil.Postgres:
		var released bool
		err := w.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", w.lockKey()).Scan(&released)
		if err != nil {
			return false, fmt.Errorf("failed to execute pg_advisory_unlock: %w", err)
		}
		w.held = false
		return released, nil

	default:
		w.held = false
		return true, nil
	}
}

// AcquireOrFail attempts to acquire the lock with a short timeout.
// Returns nil if the lock is acquired.
// Returns ErrLockTimeout if another instance is holding the lock.
func (w *WriteLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := w.Acquire(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, w.lockName)
	}
	return nil
}

// IsHeld returns true if this lock is currently held by this instance.
func (w *WriteLock) IsHeld() bool {
	return w.held
}

// LockName returns the name of the advisory lock.
func (w *WriteLock) LockName() string {
	return w.lockName
}

// lockKey hashes the lock name to the int64 key PostgreSQL advisory locks
// require.
func (w *WriteLock) lockKey() int64 {
	h := fnv.New64a()
	h.Write([]byte(w.lockName))
	return int64(h.Sum64())
}
