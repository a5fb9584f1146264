package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/tableferry/internal/config"
)

func TestLocal_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(config.DataConfig{Directory: dir})
	ctx := context.Background()

	w, err := l.Create(ctx, "types")
	require.NoError(t, err)
	_, err = w.Write([]byte("id,identifier\n1,grass\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Plain files carry the .csv extension.
	_, err = os.Stat(filepath.Join(dir, "types.csv"))
	require.NoError(t, err)

	r, err := l.Open(ctx, "types")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "id,identifier\n1,grass\n", string(data))
}

func TestLocal_SnappyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(config.DataConfig{Directory: dir, Compression: "snappy"})
	ctx := context.Background()

	content := "id,identifier\n1,grass\n2,fire\n"

	w, err := l.Create(ctx, "types")
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Compressed files get the extra extension and are not stored verbatim.
	raw, err := os.ReadFile(filepath.Join(dir, "types.csv.sz"))
	require.NoError(t, err)
	assert.NotEqual(t, content, string(raw))

	r, err := l.Open(ctx, "types")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLocal_OpenMissingFile(t *testing.T) {
	l := NewLocal(config.DataConfig{Directory: t.TempDir()})

	_, err := l.Open(context.Background(), "berries")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_CreateMakesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	l := NewLocal(config.DataConfig{Directory: dir})

	w, err := l.Create(context.Background(), "types")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(dir, "types.csv"))
	assert.NoError(t, err)
}

func TestLocal_CancelledContext(t *testing.T) {
	l := NewLocal(config.DataConfig{Directory: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Open(ctx, "types")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = l.Create(ctx, "types")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_PicksStoreByDirectory(t *testing.T) {
	ctx := context.Background()

	st, err := New(ctx, config.DataConfig{Directory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, st)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "types.csv", fileName("types", "none"))
	assert.Equal(t, "types.csv.sz", fileName("types", "snappy"))
}
