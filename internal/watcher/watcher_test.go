package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, opts Options) (*Watcher, string) {
	t.Helper()
	w, err := New(slog.New(slog.DiscardHandler), opts)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		require.NoError(t, w.Stop())
	})
	return w, dir
}

func nextEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case e := <-w.Events():
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return Event{}
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := New(slog.New(slog.DiscardHandler), Options{})
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWatcher_WatchMissingPath(t *testing.T) {
	w, err := New(slog.New(slog.DiscardHandler), Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // Test cleanup

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}

func TestWatcher_FileSettles(t *testing.T) {
	w, dir := startWatcher(t, Options{SettleDelay: 50 * time.Millisecond})

	path := filepath.Join(dir, "Geschirrspüler.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	e := nextEvent(t, w)
	assert.Equal(t, EventSettled, e.Type)
	assert.Equal(t, path, e.Path)
	assert.Equal(t, int64(8), e.Size)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	w, dir := startWatcher(t, Options{SettleDelay: 50 * time.Millisecond})

	sub := filepath.Join(dir, "scans")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to add the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "herd.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	e := nextEvent(t, w)
	assert.Equal(t, EventSettled, e.Type)
	assert.Equal(t, path, e.Path)
}

func TestWatcher_FiltersExtensionsAndIgnored(t *testing.T) {
	w, dir := startWatcher(t, Options{
		SettleDelay: 50 * time.Millisecond,
		Extensions:  []string{".pdf"},
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "download.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("x"), 0o644))
	wanted := filepath.Join(dir, "manual.pdf")
	require.NoError(t, os.WriteFile(wanted, []byte("x"), 0o644))

	e := nextEvent(t, w)
	assert.Equal(t, wanted, e.Path)
}

func TestWatcher_Removed(t *testing.T) {
	w, dir := startWatcher(t, Options{SettleDelay: 50 * time.Millisecond})

	path := filepath.Join(dir, "old.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.Equal(t, EventSettled, nextEvent(t, w).Type)

	require.NoError(t, os.Remove(path))
	e := nextEvent(t, w)
	assert.Equal(t, EventGone, e.Type)
	assert.Equal(t, path, e.Path)
}
