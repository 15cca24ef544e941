package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/color"
	"github.com/manualshelf/manualshelf-server/internal/domain"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/id"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// TagService orchestrates tag operations. Tags are shared by every file;
// a tag no file references is an orphan.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// List returns every tag ordered by name, with file counts.
func (s *TagService) List(ctx context.Context) ([]*domain.ManualTag, error) {
	tags, err := s.store.ListTags(ctx)
	return tags, readError(err, "tags")
}

// Get returns a tag by ID.
func (s *TagService) Get(ctx context.Context, tagID string) (*domain.ManualTag, error) {
	t, err := s.store.GetTag(ctx, tagID)
	return t, readError(err, "tag")
}

// Create adds a tag. colorKey is optional and must name a palette colour.
// A name equal to an existing one, ignoring case and diacritics, conflicts.
func (s *TagService) Create(ctx context.Context, name, colorKey string) (*domain.ManualTag, error) {
	name, err := tagName(name)
	if err != nil {
		return nil, err
	}
	if err := checkColor(colorKey); err != nil {
		return nil, err
	}

	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate tag ID")
	}
	now := time.Now().UTC()
	t := &domain.ManualTag{ID: tagID, Name: name, Color: colorKey, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateTag(ctx, t); err != nil {
		return nil, writeError(err, "tag "+name)
	}

	s.logger.Info("tag created", "tag_id", t.ID, "name", t.Name)
	return t, nil
}

// FindOrCreate returns the tag matching name, creating it if needed.
func (s *TagService) FindOrCreate(ctx context.Context, name string) (*domain.ManualTag, bool, error) {
	name, err := tagName(name)
	if err != nil {
		return nil, false, err
	}
	t, created, err := s.store.FindOrCreateTag(ctx, name)
	if err != nil {
		return nil, false, writeError(err, "tag "+name)
	}
	return t, created, nil
}

// UpdateTagInput changes a tag. Nil fields are left as they are; an empty
// Color clears the preferred colour.
type UpdateTagInput struct {
	Name  *string
	Color *string
}

// Update renames or recolours a tag.
func (s *TagService) Update(ctx context.Context, tagID string, in UpdateTagInput) (*domain.ManualTag, error) {
	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return nil, readError(err, "tag")
	}

	if in.Name != nil {
		name, err := tagName(*in.Name)
		if err != nil {
			return nil, err
		}
		t.Name = name
	}
	if in.Color != nil {
		if err := checkColor(*in.Color); err != nil {
			return nil, err
		}
		t.Color = *in.Color
	}

	if err := s.store.UpdateTag(ctx, t); err != nil {
		return nil, writeError(err, "tag "+t.Name)
	}
	return t, nil
}

// Delete removes a tag from every file and deletes it.
func (s *TagService) Delete(ctx context.Context, tagID string) error {
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		return writeError(err, "tag")
	}
	s.logger.Info("tag deleted", "tag_id", tagID)
	return nil
}

// PruneOrphans deletes every tag no file references and returns their IDs.
func (s *TagService) PruneOrphans(ctx context.Context) ([]string, error) {
	ids, err := s.store.DeleteOrphanTags(ctx)
	if err != nil {
		return nil, writeError(err, "orphan tags")
	}
	if len(ids) > 0 {
		s.logger.Info("pruned orphan tags", "count", len(ids))
	}
	return ids, nil
}

// Suggest returns tags whose name contains input, ignoring case and
// diacritics, leaving out the names already selected. An empty input
// suggests every unselected tag.
func (s *TagService) Suggest(ctx context.Context, input string, selected []string, limit int) ([]*domain.ManualTag, error) {
	tags, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]bool, len(selected))
	for _, name := range selected {
		exclude[textfold.Key(name)] = true
	}
	needle := textfold.Key(input)

	out := make([]*domain.ManualTag, 0)
	for _, t := range tags {
		if exclude[textfold.Key(t.Name)] || exclude[t.ID] {
			continue
		}
		if !strings.Contains(textfold.Key(t.Name), needle) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// pruneUnused deletes those of tagIDs that no file references.
func (s *TagService) pruneUnused(ctx context.Context, tagIDs []string) ([]string, error) {
	ids, err := s.store.DeleteUnusedTags(ctx, tagIDs)
	if err != nil {
		return nil, writeError(err, "orphan tags")
	}
	if len(ids) > 0 {
		s.logger.Info("pruned orphan tags", "count", len(ids))
	}
	return ids, nil
}

// RowColors assigns display colours to one row of tags. A persisted colour
// key is the tag's preferred slot; otherwise its name hash is.
func RowColors(tags []*domain.ManualTag) []color.Pair {
	in := make([]color.Tag, len(tags))
	for i, t := range tags {
		in[i] = color.Tag{Name: t.Name, Preferred: t.Color}
	}
	return color.Default.AssignRow(in)
}

func tagName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", domainerrors.Validation("tag name is required")
	}
	return name, nil
}

func checkColor(key string) error {
	if key != "" && !color.Default.Has(key) {
		return domainerrors.ValidationWithDetails("unknown tag colour", map[string]string{"color": key})
	}
	return nil
}
