// Package store defines the persistence contracts shared by the SQLite
// metadata store and the badger blob store.
package store

import (
	"context"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// ChangeKind names a persisted mutation.
type ChangeKind string

// Change kinds emitted after each successful commit.
const (
	ChangeManualCreated ChangeKind = "manual.created"
	ChangeManualUpdated ChangeKind = "manual.updated"
	ChangeManualDeleted ChangeKind = "manual.deleted"
	ChangeFileUpdated   ChangeKind = "file.updated"
	ChangeFileDeleted   ChangeKind = "file.deleted"
	ChangeTagCreated    ChangeKind = "tag.created"
	ChangeTagUpdated    ChangeKind = "tag.updated"
	ChangeTagDeleted    ChangeKind = "tag.deleted"
)

// Change describes one committed mutation. Token is the change token
// written in the same transaction.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	EntityID string     `json:"entity_id"`
	ManualID string     `json:"manual_id,omitempty"`
	Token    string     `json:"change_token"`
	At       time.Time  `json:"at"`
}

// EventEmitter receives store changes.
// The store uses it to announce commits without depending on consumers.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// SearchIndexer keeps the search index in step with committed manuals.
type SearchIndexer interface {
	IndexManual(ctx context.Context, m *domain.Manual) error
	DeleteManual(ctx context.Context, manualID string) error
}

// NoopSearchIndexer is a no-op implementation for tests.
type NoopSearchIndexer struct{}

// IndexManual is a no-op.
func (NoopSearchIndexer) IndexManual(context.Context, *domain.Manual) error { return nil }

// DeleteManual is a no-op.
func (NoopSearchIndexer) DeleteManual(context.Context, string) error { return nil }
