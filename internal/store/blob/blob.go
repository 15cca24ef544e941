// Package blob stores file payloads in badger, keyed by file ID.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/manualshelf/manualshelf-server/internal/store"
)

const (
	dataPrefix = "blob:data:"
	hashPrefix = "blob:hash:"
)

func dataKey(fileID string) []byte { return []byte(dataPrefix + fileID) }
func hashKey(fileID string) []byte { return []byte(hashPrefix + fileID) }

// Store wraps a badger database holding file payloads.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the blob store at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// OpenInMemory opens a non-persistent store for tests.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Hash returns the hex SHA-256 of data, as stored alongside each payload.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data for fileID, replacing any previous payload.
func (s *Store) Put(_ context.Context, fileID string, data []byte) error {
	if fileID == "" {
		return errors.New("blob: empty file id")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(fileID), data); err != nil {
			return err
		}
		return txn.Set(hashKey(fileID), []byte(Hash(data)))
	})
}

// Get returns the payload for fileID, or store.ErrNotFound.
func (s *Store) Get(_ context.Context, fileID string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(fileID))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", fileID, err)
	}
	return out, nil
}

// Exists reports whether a payload is stored for fileID.
func (s *Store) Exists(_ context.Context, fileID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(dataKey(fileID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Verify recomputes the payload hash and compares it with the stored one.
func (s *Store) Verify(ctx context.Context, fileID string) (bool, error) {
	data, err := s.Get(ctx, fileID)
	if err != nil {
		return false, err
	}
	var stored string
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(hashKey(fileID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			stored = string(val)
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("get blob hash %s: %w", fileID, err)
	}
	return stored == Hash(data), nil
}

// Delete removes the payload for fileID. Deleting a missing payload is not an error.
func (s *Store) Delete(_ context.Context, fileID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(dataKey(fileID)); err != nil {
			return err
		}
		return txn.Delete(hashKey(fileID))
	})
}

// FileIDs returns the IDs of every stored payload.
func (s *Store) FileIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(dataPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			ids = append(ids, string(key[len(dataPrefix):]))
		}
		return nil
	})
	return ids, err
}

// Reconcile deletes payloads whose file ID is not in keep. It returns the
// number of payloads removed.
func (s *Store) Reconcile(ctx context.Context, keep map[string]bool) (int, error) {
	ids, err := s.FileIDs(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, fileID := range ids {
		if keep[fileID] {
			continue
		}
		if err := s.Delete(ctx, fileID); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 && s.logger != nil {
		s.logger.Info("removed orphan blobs", "count", removed)
	}
	return removed, nil
}

// Sync flushes pending writes to disk. An in-memory store has no log to
// flush, and badger's Sync dereferences its nil memtable WAL.
func (s *Store) Sync() error {
	if s.db.Opts().InMemory {
		return nil
	}
	return s.db.Sync()
}

// CollectGarbage reclaims value log space until badger reports nothing left to do.
func (s *Store) CollectGarbage() {
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			return
		}
	}
}
