package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/media/images"
	"github.com/manualshelf/manualshelf-server/internal/media/mediatest"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/store/blob"
	"github.com/manualshelf/manualshelf-server/internal/store/sqlite"
)

type testEnv struct {
	store   *sqlite.Store
	blobs   *blob.Store
	thumbs  *images.Processor
	tags    *TagService
	manuals *ManualService
	logger  *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOptions(t, ManualOptions{AutoPruneTags: true})
}

func newTestEnvWithOptions(t *testing.T, opts ManualOptions) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	dir := t.TempDir()

	s, err := sqlite.Open(filepath.Join(dir, "shelf.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	blobs, err := blob.OpenInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	storage, err := images.NewStorage(filepath.Join(dir, "thumbnails"))
	require.NoError(t, err)
	thumbs := images.NewProcessor(storage, logger)

	tags := NewTagService(s, logger)
	return &testEnv{
		store:   s,
		blobs:   blobs,
		thumbs:  thumbs,
		tags:    tags,
		manuals: NewManualService(s, blobs, thumbs, tags, opts, logger),
		logger:  logger,
	}
}

// createManual stores a manual with one PDF and one JPEG.
func (env *testEnv) createManual(t *testing.T, title string, tags ...string) *domain.Manual {
	t.Helper()
	m, err := env.manuals.Create(context.Background(), CreateManualInput{
		Title: title,
		Files: []Upload{
			{Name: "anleitung.pdf", Data: mediatest.PDF(2)},
			{Name: "typenschild.jpg", Data: mediatest.JPEG(40, 20)},
		},
		Tags: tags,
	})
	require.NoError(t, err)
	return m
}

// failingRotationStore fails every rotation write.
type failingRotationStore struct {
	store.Store
}

func (failingRotationStore) UpdateFileRotation(context.Context, *domain.ManualFile) error {
	return errors.New("disk full")
}

// pruningStore prunes every orphan tag right before each file add, the way
// a concurrent delete elsewhere on the shelf would.
type pruningStore struct {
	store.Store
}

func (p pruningStore) AddFile(ctx context.Context, f *domain.ManualFile, tagNames []string) error {
	if _, err := p.Store.DeleteOrphanTags(ctx); err != nil {
		return err
	}
	return p.Store.AddFile(ctx, f, tagNames)
}
