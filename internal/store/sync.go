package store

import "time"

// SyncState is the persisted replication bookkeeping. ChangeToken rotates on
// every committed mutation; SyncedToken is the token last flushed by a sync.
type SyncState struct {
	ChangeToken string
	ChangedAt   time.Time
	SyncedToken string
	SyncedAt    *time.Time
}

// Pending reports whether changes were committed since the last sync.
func (s SyncState) Pending() bool {
	return s.ChangeToken != s.SyncedToken
}
