package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/store"
	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// fileColumns must match the scan order in scanFile.
var fileColumns = []string{
	"id", "manual_id", "file_name", "file_type", "size", "content_hash",
	"pdf_rotation_degrees", "image_rotation_degrees", "page_count", "blur_hash",
	"date_added", "updated_at",
}

func scanFile(scanner interface{ Scan(dest ...any) error }) (*domain.ManualFile, error) {
	var (
		f         domain.ManualFile
		fileType  string
		pdfRot    int
		imgRot    int
		blurHash  sql.NullString
		dateAdded string
		updatedAt string
	)

	err := scanner.Scan(
		&f.ID,
		&f.ManualID,
		&f.FileName,
		&fileType,
		&f.Size,
		&f.ContentHash,
		&pdfRot,
		&imgRot,
		&f.PageCount,
		&blurHash,
		&dateAdded,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.FileType = domain.FileType(fileType)
	f.PDFRotationDegrees = domain.Rotation(pdfRot)
	f.ImageRotationDegrees = domain.Rotation(imgRot)
	f.BlurHash = blurHash.String
	f.Tags = []*domain.ManualTag{}

	f.DateAdded, err = parseTime(dateAdded)
	if err != nil {
		return nil, err
	}
	f.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func insertFile(ctx context.Context, q querier, f *domain.ManualFile, position int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO manual_files (
			id, manual_id, file_name, file_name_folded, file_type, size, content_hash,
			pdf_rotation_degrees, image_rotation_degrees, page_count, blur_hash,
			position, date_added, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		f.ManualID,
		f.FileName,
		textfold.Fold(f.FileName),
		string(f.FileType),
		f.Size,
		f.ContentHash,
		int(f.PDFRotationDegrees),
		int(f.ImageRotationDegrees),
		f.PageCount,
		nullString(f.BlurHash),
		position,
		formatTime(f.DateAdded),
		formatTime(f.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func touchManual(ctx context.Context, q querier, manualID string, now time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE manuals SET updated_at = ? WHERE id = ?`, formatTime(now), manualID)
	if err != nil {
		return fmt.Errorf("touch manual: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetFile retrieves a file with its tags.
// Returns store.ErrNotFound if the file does not exist.
func (s *Store) GetFile(ctx context.Context, fileID string) (*domain.ManualFile, error) {
	query, args, err := sq.Select(fileColumns...).
		From("manual_files").
		Where(sq.Eq{"id": fileID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	f, err := scanFile(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachTags(ctx, []*domain.ManualFile{f}); err != nil {
		return nil, err
	}
	return f, nil
}

// AddFile appends f to an existing manual and tags it with tagNames, creating
// unknown names in the same transaction. On return f.Tags holds the
// resolved tags.
func (s *Store) AddFile(ctx context.Context, f *domain.ManualFile, tagNames []string) error {
	var createdTags []*domain.ManualTag

	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		if err := touchManual(ctx, tx, f.ManualID, now); err != nil {
			return err
		}

		tags, created, err := resolveTags(ctx, tx, tagNames, now)
		if err != nil {
			return err
		}
		createdTags = created

		var position int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM manual_files WHERE manual_id = ?`,
			f.ManualID).Scan(&position)
		if err != nil {
			return fmt.Errorf("next file position: %w", err)
		}

		if err := insertFile(ctx, tx, f, position); err != nil {
			return err
		}
		f.Tags = tags
		return setFileTags(ctx, tx, f.ID, f.TagIDs(), now)
	})
	if err != nil {
		return err
	}

	for _, t := range createdTags {
		s.emit(store.Change{Kind: store.ChangeTagCreated, EntityID: t.ID, Token: token, At: now})
	}
	s.emit(store.Change{Kind: store.ChangeFileUpdated, EntityID: f.ID, ManualID: f.ManualID, Token: token, At: now})
	s.reindex(ctx, f.ManualID)
	return nil
}

// RemoveFile deletes a file and its tag associations. The last file of a
// manual cannot be removed; delete the manual instead.
func (s *Store) RemoveFile(ctx context.Context, fileID string) (*domain.ManualFile, error) {
	f, err := s.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM manual_files WHERE manual_id = ?`, f.ManualID).Scan(&count)
		if err != nil {
			return fmt.Errorf("count files: %w", err)
		}
		if count <= 1 {
			return store.ErrLastFile
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM file_tags WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("delete file_tags: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM manual_files WHERE id = ?`, fileID)
		if err != nil {
			return fmt.Errorf("delete file: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return touchManual(ctx, tx, f.ManualID, now)
	})
	if err != nil {
		return nil, err
	}

	s.emit(store.Change{Kind: store.ChangeFileDeleted, EntityID: fileID, ManualID: f.ManualID, Token: token, At: now})
	s.reindex(ctx, f.ManualID)
	return f, nil
}

// UpdateFileRotation persists both rotation angles of f.
func (s *Store) UpdateFileRotation(ctx context.Context, f *domain.ManualFile) error {
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE manual_files
			SET pdf_rotation_degrees = ?, image_rotation_degrees = ?, updated_at = ?
			WHERE id = ?`,
			int(f.PDFRotationDegrees), int(f.ImageRotationDegrees), formatTime(now), f.ID)
		if err != nil {
			return fmt.Errorf("update rotation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	f.UpdatedAt = now
	s.emit(store.Change{Kind: store.ChangeFileUpdated, EntityID: f.ID, ManualID: f.ManualID, Token: token, At: now})
	return nil
}

// SetFileTags replaces the tags of a file with the named tags, creating
// unknown names in the same transaction. It returns the IDs of the tags the
// file no longer carries.
func (s *Store) SetFileTags(ctx context.Context, fileID string, tagNames []string) ([]string, error) {
	var (
		manualID    string
		released    []string
		createdTags []*domain.ManualTag
	)
	token, now, err := s.withTx(ctx, func(tx *sql.Tx, now time.Time) error {
		err := tx.QueryRowContext(ctx,
			`SELECT manual_id FROM manual_files WHERE id = ?`, fileID).Scan(&manualID)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get file: %w", err)
		}

		before, err := tagIDsOfFiles(ctx, tx, []string{fileID})
		if err != nil {
			return err
		}
		tags, created, err := resolveTags(ctx, tx, tagNames, now)
		if err != nil {
			return err
		}
		createdTags = created

		kept := make(map[string]bool, len(tags))
		ids := make([]string, len(tags))
		for i, t := range tags {
			kept[t.ID] = true
			ids[i] = t.ID
		}
		for _, tagID := range before {
			if !kept[tagID] {
				released = append(released, tagID)
			}
		}

		if err := setFileTags(ctx, tx, fileID, ids, now); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE manual_files SET updated_at = ? WHERE id = ?`, formatTime(now), fileID)
		if err != nil {
			return fmt.Errorf("touch file: %w", err)
		}
		return touchManual(ctx, tx, manualID, now)
	})
	if err != nil {
		return nil, err
	}

	for _, t := range createdTags {
		s.emit(store.Change{Kind: store.ChangeTagCreated, EntityID: t.ID, Token: token, At: now})
	}
	s.emit(store.Change{Kind: store.ChangeFileUpdated, EntityID: fileID, ManualID: manualID, Token: token, At: now})
	s.reindex(ctx, manualID)
	return released, nil
}

// AllFileIDs returns the set of every stored file ID.
func (s *Store) AllFileIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM manual_files`)
	if err != nil {
		return nil, fmt.Errorf("query file ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var fileID string
		if err := rows.Scan(&fileID); err != nil {
			return nil, err
		}
		ids[fileID] = true
	}
	return ids, rows.Err()
}

// attachTags loads the tags of every file in one query.
func (s *Store) attachTags(ctx context.Context, files []*domain.ManualFile) error {
	if len(files) == 0 {
		return nil
	}

	byID := make(map[string]*domain.ManualFile, len(files))
	ids := make([]string, 0, len(files))
	for _, f := range files {
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	query, args, err := sq.Select("ft.file_id", tagColumns).
		From("file_tags ft").
		Join("tags t ON t.id = ft.tag_id").
		Where(sq.Eq{"ft.file_id": ids}).
		OrderBy("t.name_key ASC").
		ToSql()
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query file tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileID string
		t, err := scanTag(rows, &fileID)
		if err != nil {
			return err
		}
		if f := byID[fileID]; f != nil {
			f.Tags = append(f.Tags, t)
		}
	}
	return rows.Err()
}
