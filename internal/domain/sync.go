package domain

import "time"

// SyncState is the replication status shown by clients.
type SyncState string

// Sync states.
const (
	SyncUnknown SyncState = "unknown"
	SyncSyncing SyncState = "syncing"
	SyncSynced  SyncState = "synced"
	SyncError   SyncState = "error"
)

// SyncStatus is a snapshot of the sync indicator.
type SyncStatus struct {
	State       SyncState     `json:"state"`
	Message     string        `json:"message,omitempty"` // Set when State is error
	LastSyncAt  *time.Time    `json:"last_sync_at,omitempty"`
	Account     AccountStatus `json:"account"`
	ChangeToken string        `json:"change_token,omitempty"`
}

// Equal compares state and message, matching how the indicator decides to redraw.
func (s SyncStatus) Equal(o SyncStatus) bool {
	return s.State == o.State && s.Message == o.Message
}

// AccountStatus describes the sync account of the shelf owner.
type AccountStatus string

// Account statuses.
const (
	AccountAvailable              AccountStatus = "available"
	AccountNoAccount              AccountStatus = "no_account"
	AccountRestricted             AccountStatus = "restricted"
	AccountCouldNotDetermine      AccountStatus = "could_not_determine"
	AccountTemporarilyUnavailable AccountStatus = "temporarily_unavailable"
)

// Message is the error text shown for a non-available account.
func (a AccountStatus) Message() string {
	switch a {
	case AccountAvailable:
		return ""
	case AccountNoAccount:
		return "no sync account"
	case AccountRestricted:
		return "sync account restricted"
	case AccountCouldNotDetermine:
		return "account status could not be determined"
	case AccountTemporarilyUnavailable:
		return "sync temporarily unavailable"
	default:
		return "unknown account status"
	}
}
