package domain

import "time"

// Syncable provides the identity and timestamps shared by replicated entities.
type Syncable struct {
	ID        string    `json:"id"`
	DateAdded time.Time `json:"date_added"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps sets both DateAdded and UpdatedAt to now.
func (s *Syncable) InitTimestamps() {
	now := time.Now().UTC()
	s.DateAdded = now
	s.UpdatedAt = now
}
