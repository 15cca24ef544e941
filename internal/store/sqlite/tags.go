package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/id"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `t.id, t.name, t.name_key, t.color, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM file_tags c WHERE c.tag_id = t.id)`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.ManualTag.
func scanTag(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.ManualTag, error) {
	var (
		t         domain.ManualTag
		color     sql.NullString
		createdAt string
		updatedAt string
	)

	dest := append(extra,
		&t.ID,
		&t.Name,
		&t.NameKey,
		&color,
		&createdAt,
		&updatedAt,
		&t.FileCount,
	)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	t.Color = color.String

	var err error
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func insertTag(ctx context.Context, q querier, t *domain.ManualTag) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tags (id, name, name_key, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.NameKey,
		nullString(t.Color),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func getTagByKey(ctx context.Context, q querier, key string) (*domain.ManualTag, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.name_key = ?`, key)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// findOrCreateTag resolves name case-insensitively, creating the tag if needed.
func findOrCreateTag(ctx context.Context, q querier, name string, now time.Time) (*domain.ManualTag, bool, error) {
	name = strings.Join(strings.Fields(name), " ")
	key := textfold.Key(name)
	if key == "" {
		return nil, false, fmt.Errorf("empty tag name")
	}

	existing, err := getTagByKey(ctx, q, key)
	if err == nil {
		return existing, false, nil
	}
	if err != store.ErrNotFound {
		return nil, false, err
	}

	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	t := &domain.ManualTag{
		ID:        tagID,
		Name:      name,
		NameKey:   key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := insertTag(ctx, q, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// CreateTag inserts a new tag. Returns store.ErrAlreadyExists when a tag
// with the same folded name exists.
func (s *Store) CreateTag(ctx context.Context, t *domain.ManualTag) error {
	t.NameKey = textfold.Key(t.Name)

	token, now, err := s.withTx(ctx, func(tx *sql.Tx, _ time.Time) error {
		return insertTag(ctx, tx, t)
	})
	if err != nil {
		return err
	}

	s.emit(store.Change{Kind: store.ChangeTagCreated, EntityID: t.ID, Token: token, At: now})
	return nil
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.ManualTag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.id = ?`, tagID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByName looks a tag up case- and diacritic-insensitively.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.ManualTag, error) {
	return getTagByKey(ctx, s.db, textfold.Key(name))
}

// ListTags returns all tags ordered by folded name, with file counts.
func (s *Store) ListTags(ctx context.Context) ([]*domain.ManualTag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags t ORDER BY t.name_key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.ManualTag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// FindOrCreateTag finds a tag by name or creates it.
// Returns (tag, created, error) where created is true if a new tag was made.
func (s *Store) FindOrCreateTag(ctx context.Context, name string) (*domain.ManualTag, bool, error) {
	var (
		t       *domain.ManualTag
		created bool
	)
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		var err error
		t, created, err = findOrCreateTag(ctx, tx, name, now)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.emit(store.Change{Kind: store.ChangeTagCreated, EntityID: t.ID, Token: token, At: now})
	}
	return t, created, nil
}

// UpdateTag persists a tag's name and colour.
func (s *Store) UpdateTag(ctx context.Context, t *domain.ManualTag) error {
	t.NameKey = textfold.Key(t.Name)

	var manualIDs []string
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tags SET name = ?, name_key = ?, color = ?, updated_at = ?
			WHERE id = ?`,
			t.Name, t.NameKey, nullString(t.Color), formatTime(now), t.ID)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("update tag: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		t.UpdatedAt = now

		manualIDs, err = manualIDsForTag(ctx, tx, t.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.emit(store.Change{Kind: store.ChangeTagUpdated, EntityID: t.ID, Token: token, At: now})
	s.reindex(ctx, manualIDs...)
	return nil
}

// DeleteTag removes a tag and its file associations.
func (s *Store) DeleteTag(ctx context.Context, tagID string) error {
	var manualIDs []string
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, _ time.Time) error {
		var err error
		manualIDs, err = manualIDsForTag(ctx, tx, tagID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM file_tags WHERE tag_id = ?`, tagID); err != nil {
			return fmt.Errorf("delete file_tags: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(store.Change{Kind: store.ChangeTagDeleted, EntityID: tagID, Token: token, At: now})
	s.reindex(ctx, manualIDs...)
	return nil
}

// errNoOrphans aborts a prune transaction that found nothing to delete, so
// the change token is left alone.
var errNoOrphans = errors.New("no orphan tags")

// DeleteOrphanTags removes every tag no file references and returns their IDs.
func (s *Store) DeleteOrphanTags(ctx context.Context) ([]string, error) {
	return s.deleteOrphans(ctx, nil)
}

// DeleteUnusedTags removes those of tagIDs that no file references and
// returns the IDs it deleted. Other orphan tags are left alone.
func (s *Store) DeleteUnusedTags(ctx context.Context, tagIDs []string) ([]string, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	return s.deleteOrphans(ctx, tagIDs)
}

// deleteOrphans selects and deletes orphan tags in one transaction. A nil
// among considers every tag.
func (s *Store) deleteOrphans(ctx context.Context, among []string) ([]string, error) {
	b := sq.Select("t.id").
		From("tags t").
		Where("NOT EXISTS (SELECT 1 FROM file_tags ft WHERE ft.tag_id = t.id)")
	if among != nil {
		b = b.Where(sq.Eq{"t.id": among})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var ids []string
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, _ time.Time) error {
		found, err := queryIDs(ctx, tx, query, args...)
		if err != nil {
			return fmt.Errorf("query orphan tags: %w", err)
		}
		if len(found) == 0 {
			return errNoOrphans
		}
		ids = found
		_, err = tx.ExecContext(ctx,
			`DELETE FROM tags WHERE id IN (`+placeholders(len(found))+`)`,
			anySlice(found)...)
		if err != nil {
			return fmt.Errorf("delete orphan tags: %w", err)
		}
		return nil
	})
	if errors.Is(err, errNoOrphans) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, tagID := range ids {
		s.emit(store.Change{Kind: store.ChangeTagDeleted, EntityID: tagID, Token: token, At: now})
	}
	return ids, nil
}

// resolveTags finds or creates each named tag inside q, dropping repeats.
// created holds the tags this call inserted.
func resolveTags(ctx context.Context, q querier, names []string, now time.Time) (tags, created []*domain.ManualTag, err error) {
	tags = make([]*domain.ManualTag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		t, isNew, err := findOrCreateTag(ctx, q, name, now)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if isNew {
			created = append(created, t)
		}
		tags = append(tags, t)
	}
	return tags, created, nil
}

// tagIDsOfFiles returns the distinct tags applied to any of fileIDs.
func tagIDsOfFiles(ctx context.Context, q querier, fileIDs []string) ([]string, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	ids, err := queryIDs(ctx, q,
		`SELECT DISTINCT tag_id FROM file_tags WHERE file_id IN (`+placeholders(len(fileIDs))+`)`,
		anySlice(fileIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query file tags: %w", err)
	}
	return ids, nil
}

func queryIDs(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ids = append(ids, v)
	}
	return ids, rows.Err()
}

func manualIDsForTag(ctx context.Context, q querier, tagID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT f.manual_id
		FROM file_tags ft
		JOIN manual_files f ON f.id = ft.file_id
		WHERE ft.tag_id = ?`, tagID)
	if err != nil {
		return nil, fmt.Errorf("query manuals for tag: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var manualID string
		if err := rows.Scan(&manualID); err != nil {
			return nil, err
		}
		ids = append(ids, manualID)
	}
	return ids, rows.Err()
}

// setFileTags replaces the tag set of a file inside q.
func setFileTags(ctx context.Context, q querier, fileID string, tagIDs []string, now time.Time) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM file_tags WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file_tags: %w", err)
	}
	seen := make(map[string]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true
		_, err := q.ExecContext(ctx, `
			INSERT INTO file_tags (file_id, tag_id, created_at)
			VALUES (?, ?, ?)`,
			fileID, tagID, formatTime(now))
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return fmt.Errorf("tag %s: %w", tagID, store.ErrNotFound)
			}
			return fmt.Errorf("insert file_tag: %w", err)
		}
	}
	return nil
}
