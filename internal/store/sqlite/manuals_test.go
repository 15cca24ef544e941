package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

func TestCreateAndGetManual(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	emitter := &recordingEmitter{}
	indexer := &recordingIndexer{}
	s.SetEmitter(emitter)
	s.SetSearchIndexer(indexer)

	m := makeManual("man-1", "Kaffeemaschine", time.Now(), "anleitung.pdf", "typenschild.jpg")
	require.NoError(t, s.CreateManual(ctx, m, []string{"Küche", "küche", "Garantie"}))

	got, err := s.GetManual(ctx, "man-1")
	require.NoError(t, err)

	assert.Equal(t, "Kaffeemaschine", got.Title)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "anleitung.pdf", got.Files[0].FileName)
	assert.Equal(t, domain.FileTypePDF, got.Files[0].FileType)
	assert.Equal(t, "typenschild.jpg", got.Files[1].FileName)
	assert.Equal(t, domain.FileTypeJPEG, got.Files[1].FileType)

	// Duplicate names collapse onto one tag; every file gets the set.
	for _, f := range got.Files {
		require.Len(t, f.Tags, 2)
		assert.Equal(t, "Garantie", f.Tags[0].Name)
		assert.Equal(t, "Küche", f.Tags[1].Name)
	}
	assert.Equal(t, 2, got.Files[0].Tags[1].FileCount)

	assert.Equal(t,
		[]store.ChangeKind{store.ChangeTagCreated, store.ChangeTagCreated, store.ChangeManualCreated},
		emitter.kinds())
	assert.Equal(t, []string{"man-1"}, indexer.indexed)
}

func TestCreateManual_ReusesTagCaseInsensitively(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tag, _, err := s.FindOrCreateTag(ctx, "Küche")
	require.NoError(t, err)

	m := makeManual("man-1", "Herd", time.Now(), "herd.pdf")
	require.NoError(t, s.CreateManual(ctx, m, []string{"KUCHE"}))

	require.Len(t, m.Files[0].Tags, 1)
	assert.Equal(t, tag.ID, m.Files[0].Tags[0].ID)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestCreateManual_RollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := makeManual("man-1", "Herd", time.Now(), "herd.pdf", "herd2.pdf")
	m.Files[1].ID = m.Files[0].ID // duplicate primary key

	err := s.CreateManual(ctx, m, []string{"Küche"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.GetManual(ctx, "man-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestGetManual_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetManual(context.Background(), "man-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenameManual(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateManual(ctx, makeManual("man-1", "Alt", time.Now(), "a.pdf"), nil))
	require.NoError(t, s.RenameManual(ctx, "man-1", "Neu"))

	got, err := s.GetManual(ctx, "man-1")
	require.NoError(t, err)
	assert.Equal(t, "Neu", got.Title)

	assert.ErrorIs(t, s.RenameManual(ctx, "man-missing", "x"), store.ErrNotFound)
}

func TestDeleteManual_RemovesAssociationsKeepsTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	indexer := &recordingIndexer{}
	s.SetSearchIndexer(indexer)

	m := makeManual("man-1", "Waschmaschine", time.Now(), "a.pdf", "b.png")
	require.NoError(t, s.CreateManual(ctx, m, []string{"Bad"}))

	fileIDs, tagIDs, err := s.DeleteManual(ctx, "man-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{m.Files[0].ID, m.Files[1].ID}, fileIDs)
	assert.Equal(t, []string{m.Files[0].Tags[0].ID}, tagIDs)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM file_tags`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM manual_files`).Scan(&n))
	assert.Zero(t, n)

	// The tag survives as an orphan.
	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.True(t, tags[0].IsOrphan())

	assert.Equal(t, []string{"man-1"}, indexer.removed)

	_, _, err = s.DeleteManual(ctx, "man-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMutations_RotateChangeToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.GetSyncState(ctx)
	require.NoError(t, err)

	require.NoError(t, s.CreateManual(ctx, makeManual("man-1", "A", time.Now(), "a.pdf"), nil))

	after, err := s.GetSyncState(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.ChangeToken, after.ChangeToken)
	assert.True(t, after.Pending())
}

func TestFreshStore_NothingPending(t *testing.T) {
	s := newTestStore(t)

	st, err := s.GetSyncState(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Pending())
	assert.Nil(t, st.SyncedAt)
}
