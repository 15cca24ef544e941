package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// manualColumns must match the scan order in scanManual.
var manualColumns = []string{"m.id", "m.title", "m.date_added", "m.updated_at"}

func scanManual(scanner interface{ Scan(dest ...any) error }) (*domain.Manual, error) {
	var (
		m         domain.Manual
		dateAdded string
		updatedAt string
	)
	if err := scanner.Scan(&m.ID, &m.Title, &dateAdded, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	m.DateAdded, err = parseTime(dateAdded)
	if err != nil {
		return nil, err
	}
	m.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	m.Files = []*domain.ManualFile{}
	return &m, nil
}

// CreateManual inserts m and all of its files in one transaction. Every file
// receives the tags named in tagNames; unknown names are created.
// On return each file's Tags holds the resolved tags.
func (s *Store) CreateManual(ctx context.Context, m *domain.Manual, tagNames []string) error {
	var createdTags []*domain.ManualTag

	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO manuals (id, title, title_folded, date_added, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			m.ID,
			m.Title,
			textfold.Fold(m.Title),
			formatTime(m.DateAdded),
			formatTime(m.UpdatedAt),
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("insert manual: %w", err)
		}

		tags, created, err := resolveTags(ctx, tx, tagNames, now)
		if err != nil {
			return err
		}
		createdTags = created

		for i, f := range m.Files {
			f.ManualID = m.ID
			if err := insertFile(ctx, tx, f, i); err != nil {
				return err
			}
			f.Tags = tags
			if err := setFileTags(ctx, tx, f.ID, f.TagIDs(), now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range createdTags {
		s.emit(store.Change{Kind: store.ChangeTagCreated, EntityID: t.ID, Token: token, At: now})
	}
	s.emit(store.Change{Kind: store.ChangeManualCreated, EntityID: m.ID, ManualID: m.ID, Token: token, At: now})
	s.reindex(ctx, m.ID)
	return nil
}

// GetManual retrieves a manual with its files and their tags.
// Returns store.ErrNotFound if the manual does not exist.
func (s *Store) GetManual(ctx context.Context, manualID string) (*domain.Manual, error) {
	query, args, err := sq.Select(manualColumns...).
		From("manuals m").
		Where(sq.Eq{"m.id": manualID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	m, err := scanManual(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachFiles(ctx, []*domain.Manual{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// RenameManual sets a new title.
func (s *Store) RenameManual(ctx context.Context, manualID, title string) error {
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE manuals SET title = ?, title_folded = ?, updated_at = ?
			WHERE id = ?`,
			title, textfold.Fold(title), formatTime(now), manualID)
		if err != nil {
			return fmt.Errorf("rename manual: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(store.Change{Kind: store.ChangeManualUpdated, EntityID: manualID, ManualID: manualID, Token: token, At: now})
	s.reindex(ctx, manualID)
	return nil
}

// DeleteManual removes a manual, its files and their tag associations in one
// transaction. It returns the deleted file IDs so their blobs can be removed,
// and the tags those files carried. Tags are kept even when this leaves them
// without files.
func (s *Store) DeleteManual(ctx context.Context, manualID string) (fileIDs, tagIDs []string, err error) {
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, _ time.Time) error {
		var err error
		fileIDs, err = queryIDs(ctx, tx, `SELECT id FROM manual_files WHERE manual_id = ?`, manualID)
		if err != nil {
			return fmt.Errorf("query files: %w", err)
		}

		tagIDs, err = tagIDsOfFiles(ctx, tx, fileIDs)
		if err != nil {
			return err
		}
		if len(fileIDs) > 0 {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM file_tags WHERE file_id IN (`+placeholders(len(fileIDs))+`)`,
				anySlice(fileIDs)...)
			if err != nil {
				return fmt.Errorf("delete file_tags: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM manual_files WHERE manual_id = ?`, manualID); err != nil {
			return fmt.Errorf("delete files: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM manuals WHERE id = ?`, manualID)
		if err != nil {
			return fmt.Errorf("delete manual: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.emit(store.Change{Kind: store.ChangeManualDeleted, EntityID: manualID, ManualID: manualID, Token: token, At: now})
	s.unindex(ctx, manualID)
	return fileIDs, tagIDs, nil
}

// attachFiles loads the files of every manual, then their tags.
func (s *Store) attachFiles(ctx context.Context, manuals []*domain.Manual) error {
	if len(manuals) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Manual, len(manuals))
	ids := make([]string, 0, len(manuals))
	for _, m := range manuals {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	query, args, err := sq.Select(fileColumns...).
		From("manual_files").
		Where(sq.Eq{"manual_id": ids}).
		OrderBy("manual_id", "position", "date_added").
		ToSql()
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query files: %w", err)
	}

	var files []*domain.ManualFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			rows.Close()
			return err
		}
		files = append(files, f)
		if m := byID[f.ManualID]; m != nil {
			m.Files = append(m.Files, f)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	return s.attachTags(ctx, files)
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
