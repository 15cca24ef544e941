package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateManual(ctx, makeManual("man-1", "A", time.Now(), "a.pdf"), nil))

	st, err := s.GetSyncState(ctx)
	require.NoError(t, err)
	require.True(t, st.Pending())

	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkSynced(ctx, st.ChangeToken, at))

	st, err = s.GetSyncState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Pending())
	require.NotNil(t, st.SyncedAt)
	assert.True(t, at.Equal(*st.SyncedAt))

	// A later change is pending again.
	require.NoError(t, s.RenameManual(ctx, "man-1", "B"))
	st, err = s.GetSyncState(ctx)
	require.NoError(t, err)
	assert.True(t, st.Pending())
}

func TestCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateManual(ctx, makeManual("man-1", "A", time.Now(), "a.pdf"), nil))
	assert.NoError(t, s.Checkpoint(ctx))
	assert.NoError(t, s.Ping(ctx))
}
