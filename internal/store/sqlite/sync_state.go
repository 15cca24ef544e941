package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manualshelf/manualshelf-server/internal/store"
)

// ensureSyncState seeds the single sync_state row on a fresh database.
// A fresh shelf has nothing pending.
func (s *Store) ensureSyncState(ctx context.Context) error {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sync_state (id, change_token, changed_at, synced_token)
		VALUES (1, ?, ?, ?)`,
		token,
		formatTime(time.Now()),
		token,
	)
	if err != nil {
		return fmt.Errorf("seed sync state: %w", err)
	}
	return nil
}

// bumpChangeToken rotates the change token inside tx.
func bumpChangeToken(ctx context.Context, tx *sql.Tx, now time.Time) (string, error) {
	token := uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`UPDATE sync_state SET change_token = ?, changed_at = ? WHERE id = 1`,
		token, formatTime(now))
	if err != nil {
		return "", fmt.Errorf("bump change token: %w", err)
	}
	return token, nil
}

// GetSyncState returns the persisted sync bookkeeping.
func (s *Store) GetSyncState(ctx context.Context) (store.SyncState, error) {
	var (
		st          store.SyncState
		changedAt   string
		syncedToken sql.NullString
		syncedAt    sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT change_token, changed_at, synced_token, synced_at
		FROM sync_state WHERE id = 1`,
	).Scan(&st.ChangeToken, &changedAt, &syncedToken, &syncedAt)
	if err == sql.ErrNoRows {
		return st, store.ErrNotFound
	}
	if err != nil {
		return st, fmt.Errorf("get sync state: %w", err)
	}

	st.ChangedAt, err = parseTime(changedAt)
	if err != nil {
		return st, err
	}
	st.SyncedToken = syncedToken.String
	st.SyncedAt, err = parseNullableTime(syncedAt)
	if err != nil {
		return st, err
	}
	return st, nil
}

// MarkSynced records token as flushed at the given time.
// A token older than the current change token leaves the state pending.
func (s *Store) MarkSynced(ctx context.Context, token string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_state SET synced_token = ?, synced_at = ? WHERE id = 1`,
		token, formatTime(at))
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}
