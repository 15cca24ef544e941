package store

import (
	"context"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// Store defines the metadata persistence operations used by the services.
// Every mutation runs in one transaction, rotates the change token and
// announces itself through the EventEmitter after commit.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error
	SetEmitter(emitter EventEmitter)
	SetSearchIndexer(indexer SearchIndexer)

	// Manuals
	CreateManual(ctx context.Context, m *domain.Manual, tagNames []string) error
	GetManual(ctx context.Context, manualID string) (*domain.Manual, error)
	ListManuals(ctx context.Context, q domain.ListQuery) ([]*domain.Manual, int, error)
	RenameManual(ctx context.Context, manualID, title string) error
	DeleteManual(ctx context.Context, manualID string) (fileIDs, tagIDs []string, err error)

	// Files
	GetFile(ctx context.Context, fileID string) (*domain.ManualFile, error)
	AddFile(ctx context.Context, f *domain.ManualFile, tagNames []string) error
	RemoveFile(ctx context.Context, fileID string) (*domain.ManualFile, error)
	UpdateFileRotation(ctx context.Context, f *domain.ManualFile) error
	SetFileTags(ctx context.Context, fileID string, tagNames []string) ([]string, error)
	AllFileIDs(ctx context.Context) (map[string]bool, error)

	// Tags
	CreateTag(ctx context.Context, t *domain.ManualTag) error
	GetTag(ctx context.Context, tagID string) (*domain.ManualTag, error)
	GetTagByName(ctx context.Context, name string) (*domain.ManualTag, error)
	ListTags(ctx context.Context) ([]*domain.ManualTag, error)
	FindOrCreateTag(ctx context.Context, name string) (*domain.ManualTag, bool, error)
	UpdateTag(ctx context.Context, t *domain.ManualTag) error
	DeleteTag(ctx context.Context, tagID string) error
	DeleteOrphanTags(ctx context.Context) ([]string, error)
	DeleteUnusedTags(ctx context.Context, tagIDs []string) ([]string, error)

	// Sync
	GetSyncState(ctx context.Context) (SyncState, error)
	MarkSynced(ctx context.Context, token string, at time.Time) error
	Checkpoint(ctx context.Context) error
}

// BlobStore holds file payloads keyed by file ID.
type BlobStore interface {
	Put(ctx context.Context, fileID string, data []byte) error
	Get(ctx context.Context, fileID string) ([]byte, error)
	Exists(ctx context.Context, fileID string) (bool, error)
	Verify(ctx context.Context, fileID string) (bool, error)
	Delete(ctx context.Context, fileID string) error
	FileIDs(ctx context.Context) ([]string, error)
	Reconcile(ctx context.Context, keep map[string]bool) (int, error)
	Sync() error
}
