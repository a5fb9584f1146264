// Package store abstracts where table files live: a local directory or an
// S3 bucket prefix, optionally snappy-compressed.
package store

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/dbsmedya/tableferry/internal/config"
)

// ErrNotFound is returned by Open when a table's file does not exist.
// During load this is an expected condition, not a failure.
var ErrNotFound = errors.New("table file not found")

// Store provides read and write access to one file per table.
type Store interface {
	// Open opens the table's file for reading.
	// Returns ErrNotFound if the file does not exist.
	Open(ctx context.Context, table string) (io.ReadCloser, error)

	// Create creates (or replaces) the table's file for writing.
	// The write is not durable until Close returns nil.
	Create(ctx context.Context, table string) (io.WriteCloser, error)

	// Location describes where the store's files live, for logs and errors.
	Location() string
}

const fileExt = ".csv"

// compressedExt is appended to file names when snappy compression is on.
const compressedExt = ".sz"

// New picks a Store implementation from the data configuration: an
// s3://bucket/prefix directory selects S3, anything else is a local path.
func New(ctx context.Context, cfg config.DataConfig) (Store, error) {
	if strings.HasPrefix(cfg.Directory, "s3://") {
		return NewS3(ctx, cfg)
	}
	return NewLocal(cfg), nil
}

// fileName returns the file name for a table under the given configuration.
func fileName(table string, compression string) string {
	name := table + fileExt
	if compression == "snappy" {
		name += compressedExt
	}
	return name
}
