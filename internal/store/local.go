package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/dbsmedya/tableferry/internal/config"
)

// Local stores one file per table under a local directory.
type Local struct {
	dir         string
	compression string
}

// NewLocal creates a local filesystem store rooted at the configured
// directory.
func NewLocal(cfg config.DataConfig) *Local {
	return &Local{
		dir:         cfg.Directory,
		compression: cfg.Compression,
	}
}

// Open opens the table's file for reading.
func (l *Local) Open(ctx context.Context, table string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(l.dir, fileName(table, l.compression))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if l.compression == "snappy" {
		return &snappyReadCloser{Reader: snappy.NewReader(f), file: f}, nil
	}
	return f, nil
}

// Create creates the table's file for writing, creating the directory if
// needed.
func (l *Local) Create(ctx context.Context, table string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", l.dir, err)
	}

	path := filepath.Join(l.dir, fileName(table, l.compression))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	if l.compression == "snappy" {
		return &snappyWriteCloser{Writer: snappy.NewBufferedWriter(f), file: f}, nil
	}
	return f, nil
}

// Location returns the directory files live in.
func (l *Local) Location() string {
	return l.dir
}

// snappyReadCloser closes the underlying file when the snappy stream is done.
type snappyReadCloser struct {
	*snappy.Reader
	file *os.File
}

func (r *snappyReadCloser) Close() error {
	return r.file.Close()
}

// snappyWriteCloser flushes the snappy stream before closing the file.
type snappyWriteCloser struct {
	*snappy.Writer
	file *os.File
}

func (w *snappyWriteCloser) Close() error {
	if err := w.Writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
