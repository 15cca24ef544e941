package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// SearchIndex wraps a Bleve index of manuals. All methods are safe for
// concurrent use; Rebuild takes the lock exclusively.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory holding search.bleve
	Logger   *slog.Logger // Discards when nil
}

// mappingVersion changes whenever buildIndexMapping does; a mismatch on
// startup drops the index so it can be rebuilt from the store.
const mappingVersion = "1"

// NewSearchIndex opens the index under opts.DataPath, creating it when it is
// missing, unreadable or built with another mapping version.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	s := &SearchIndex{path: indexPath, logger: logger}

	if _, err := os.Stat(indexPath); err == nil {
		version, _ := os.ReadFile(versionPath)
		if string(version) == mappingVersion {
			index, err := bleve.Open(indexPath)
			if err == nil {
				s.index = index
				logger.Info("opened search index", "path", indexPath)
				return s, nil
			}
			logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
		} else {
			logger.Info("search mapping changed, recreating index",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
		}
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	index, err := bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		logger.Warn("failed to write search version file", "error", err)
	}
	logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)

	s.index = index
	return s, nil
}

// NewMemoryIndex creates an index that lives only in memory.
func NewMemoryIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &SearchIndex{index: index, logger: slog.New(slog.DiscardHandler)}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument indexes or replaces a single document.
func (s *SearchIndex) IndexDocument(doc *SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes documents in batches of 500.
func (s *SearchIndex) IndexDocuments(docs []*SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// DeleteDocument removes a document from the index.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// IndexManual indexes or replaces the document of m.
func (s *SearchIndex) IndexManual(_ context.Context, m *domain.Manual) error {
	return s.IndexDocument(ManualToSearchDocument(m))
}

// IndexManuals indexes every manual in batches.
func (s *SearchIndex) IndexManuals(_ context.Context, manuals []*domain.Manual) error {
	docs := make([]*SearchDocument, len(manuals))
	for i, m := range manuals {
		docs[i] = ManualToSearchDocument(m)
	}
	return s.IndexDocuments(docs)
}

// DeleteManual removes a manual's document.
func (s *SearchIndex) DeleteManual(_ context.Context, manualID string) error {
	return s.DeleteDocument(manualID)
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document by recreating the index with the current
// mapping. Memory indexes are recreated in memory.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
