package images

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// Storage is a disk cache of rendered thumbnails, one file per file ID and
// rotation. Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

// NewStorage creates a thumbnail cache in {basePath}/thumbnails.
func NewStorage(basePath string) (*Storage, error) {
	return NewStorageWithSubdir(basePath, "thumbnails")
}

// NewStorageWithSubdir creates a cache in {basePath}/{subdir}.
func NewStorageWithSubdir(basePath, subdir string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if subdir == "" {
		return nil, fmt.Errorf("subdirectory cannot be empty")
	}

	storagePath := filepath.Join(basePath, subdir)
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}

	return &Storage{basePath: storagePath}, nil
}

// Save stores a thumbnail for fileID at rotation r.
func (s *Storage) Save(fileID string, r domain.Rotation, data []byte) error {
	if fileID == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if len(data) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(fileID, r), data, 0o644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return nil
}

// Get returns the cached thumbnail, or an error wrapping os.ErrNotExist.
func (s *Storage) Get(fileID string, r domain.Rotation) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(fileID, r))
	if err != nil {
		return nil, fmt.Errorf("thumbnail for %s: %w", fileID, err)
	}
	return data, nil
}

// Exists reports whether a thumbnail is cached.
func (s *Storage) Exists(fileID string, r domain.Rotation) bool {
	if fileID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(fileID, r))
	return err == nil
}

// Delete removes every cached rotation of fileID.
func (s *Storage) Delete(fileID string) error {
	if fileID == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.basePath, fileID+"-*.jpg"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if !strings.HasPrefix(filepath.Base(path), fileID+"-") {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete thumbnail: %w", err)
		}
	}
	return nil
}

// Hash returns the hex SHA-256 of a cached thumbnail, used as its ETag.
func (s *Storage) Hash(fileID string, r domain.Rotation) (string, error) {
	data, err := s.Get(fileID, r)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Path returns the cache path for fileID at rotation r.
func (s *Storage) Path(fileID string, r domain.Rotation) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s-%d.jpg", fileID, r))
}
