package blob

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/store"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := Open(filepath.Join(t.TempDir(), "blobs"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	data := []byte("%PDF-1.7 fake")
	require.NoError(t, s.Put(ctx, "file-1", data))

	got, err := s.Get(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ok, err := s.Verify(ctx, "file-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGet_Missing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), "file-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPut_EmptyID(t *testing.T) {
	s := setupTestStore(t)
	assert.Error(t, s.Put(context.Background(), "", []byte("x")))
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "file-1", []byte("a")))
	require.NoError(t, s.Delete(ctx, "file-1"))

	exists, err := s.Exists(ctx, "file-1")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting twice is fine.
	assert.NoError(t, s.Delete(ctx, "file-1"))
}

func TestReconcile(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"file-1", "file-2", "file-3"} {
		require.NoError(t, s.Put(ctx, id, []byte(id)))
	}

	removed, err := s.Reconcile(ctx, map[string]bool{"file-2": true})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ids, err := s.FileIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"file-2"}, ids)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	ctx := context.Background()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "file-1", []byte("payload")))
	require.NoError(t, s.Sync())
	require.NoError(t, s.Close())

	s2, err := Open(dir, nil)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestHash(t *testing.T) {
	assert.Equal(t, Hash([]byte("abc")), Hash([]byte("abc")))
	assert.NotEqual(t, Hash([]byte("abc")), Hash([]byte("abd")))
	assert.Len(t, Hash(nil), 64)
}

func TestSync(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.Put(context.Background(), "file-1", []byte("x")))
	assert.NoError(t, s.Sync())
}

func TestSync_InMemory(t *testing.T) {
	s, err := OpenInMemory(nil)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "file-1", []byte("x")))
	assert.NoError(t, s.Sync())

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("close blocked after sync")
	}
}
