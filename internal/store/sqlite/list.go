package sqlite

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// orderBy lists the ORDER BY terms for each sort option.
// Title sorts break ties newest first; date sorts break ties by title.
var orderBy = map[domain.SortOption][]string{
	domain.SortTitleAsc:  {"m.title_folded ASC", "m.date_added DESC", "m.id ASC"},
	domain.SortTitleDesc: {"m.title_folded DESC", "m.date_added DESC", "m.id ASC"},
	domain.SortDateDesc:  {"m.date_added DESC", "m.title_folded ASC", "m.id ASC"},
	domain.SortDateAsc:   {"m.date_added ASC", "m.title_folded ASC", "m.id ASC"},
}

// listFilter builds the WHERE clause shared by the page and count queries.
func listFilter(q domain.ListQuery) sq.And {
	var where sq.And

	if needle := textfold.Fold(strings.TrimSpace(q.Query)); needle != "" {
		pattern := "%" + escapeLike(needle) + "%"
		where = append(where, sq.Or{
			sq.Expr(`m.title_folded LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`EXISTS (SELECT 1 FROM manual_files f
				WHERE f.manual_id = m.id AND f.file_name_folded LIKE ? ESCAPE '\')`, pattern),
		})
	}

	if q.TagID != "" {
		where = append(where, sq.Expr(`EXISTS (SELECT 1 FROM manual_files f
			JOIN file_tags ft ON ft.file_id = f.id
			WHERE f.manual_id = m.id AND ft.tag_id = ?)`, q.TagID))
	}

	return where
}

func listQuery(q domain.ListQuery) (string, []any, error) {
	order, ok := orderBy[q.Sort]
	if !ok {
		order = orderBy[domain.DefaultSort]
	}

	b := sq.Select(manualColumns...).From("manuals m").OrderBy(order...)
	if where := listFilter(q); len(where) > 0 {
		b = b.Where(where)
	}

	switch {
	case q.Limit > 0:
		b = b.Limit(uint64(q.Limit))
		if q.Offset > 0 {
			b = b.Offset(uint64(q.Offset))
		}
	case q.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		b = b.Suffix("LIMIT -1 OFFSET ?", q.Offset)
	}

	return b.ToSql()
}

func countQuery(q domain.ListQuery) (string, []any, error) {
	b := sq.Select("COUNT(*)").From("manuals m")
	if where := listFilter(q); len(where) > 0 {
		b = b.Where(where)
	}
	return b.ToSql()
}

// ListManuals returns the manuals matching q in q.Sort order, with files and
// tags loaded, plus the total number of matches before paging.
// A zero Limit returns every match.
func (s *Store) ListManuals(ctx context.Context, q domain.ListQuery) ([]*domain.Manual, int, error) {
	query, args, err := listQuery(q)
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list manuals: %w", err)
	}

	manuals := []*domain.Manual{}
	for rows.Next() {
		m, err := scanManual(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		manuals = append(manuals, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	total := len(manuals)
	if q.Limit > 0 || q.Offset > 0 {
		query, args, err := countQuery(q)
		if err != nil {
			return nil, 0, fmt.Errorf("build count query: %w", err)
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count manuals: %w", err)
		}
	}

	if err := s.attachFiles(ctx, manuals); err != nil {
		return nil, 0, err
	}
	return manuals, total, nil
}
