package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/search"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

// SearchService provides ranked search on top of the Bleve index and keeps
// the index in step with the store.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a ranked query.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if params.Limit > 100 {
		return nil, domainerrors.Validation("limit must not exceed 100")
	}
	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search failed")
	}
	return res, nil
}

// Reindex rebuilds the index from every manual in the store.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	start := time.Now()

	manuals, _, err := s.store.ListManuals(ctx, domain.ListQuery{Sort: domain.SortDateDesc})
	if err != nil {
		return 0, fmt.Errorf("list manuals: %w", err)
	}
	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	if err := s.index.IndexManuals(ctx, manuals); err != nil {
		return 0, fmt.Errorf("index manuals: %w", err)
	}

	s.logger.Info("search index rebuilt", "manuals", len(manuals), "duration", time.Since(start))
	return len(manuals), nil
}

// ReindexIfEmpty rebuilds the index when it holds no documents but the
// store has manuals, as after a mapping change.
func (s *SearchService) ReindexIfEmpty(ctx context.Context) error {
	count, err := s.index.DocumentCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, total, err := s.store.ListManuals(ctx, domain.ListQuery{Limit: 1})
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	_, err = s.Reindex(ctx)
	return err
}

// DocumentCount returns the number of indexed manuals.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
