package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// seedShelf creates four manuals added one day apart, oldest first.
func seedShelf(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateManual(ctx,
		makeManual("man-fridge", "Kühlschrank", base, "kuehl.pdf"), []string{"Küche"}))
	require.NoError(t, s.CreateManual(ctx,
		makeManual("man-drill", "Bohrmaschine", base.Add(24*time.Hour), "bosch_manual.pdf", "garantie.png"), []string{"Werkstatt"}))
	require.NoError(t, s.CreateManual(ctx,
		makeManual("man-oven", "Backofen", base.Add(48*time.Hour), "Ofen-Anleitung.PDF"), []string{"Küche"}))
	require.NoError(t, s.CreateManual(ctx,
		makeManual("man-router", "router", base.Add(72*time.Hour), "setup.jpg"), nil))
}

func manualIDs(ms []*domain.Manual) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func TestListManuals_Sort(t *testing.T) {
	s := newTestStore(t)
	seedShelf(t, s)
	ctx := context.Background()

	tests := []struct {
		sort domain.SortOption
		want []string
	}{
		{domain.SortTitleAsc, []string{"man-oven", "man-drill", "man-fridge", "man-router"}},
		{domain.SortTitleDesc, []string{"man-router", "man-fridge", "man-drill", "man-oven"}},
		{domain.SortDateDesc, []string{"man-router", "man-oven", "man-drill", "man-fridge"}},
		{domain.SortDateAsc, []string{"man-fridge", "man-drill", "man-oven", "man-router"}},
		{"", []string{"man-router", "man-oven", "man-drill", "man-fridge"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got, total, err := s.ListManuals(ctx, domain.ListQuery{Sort: tt.sort})
			require.NoError(t, err)
			assert.Equal(t, tt.want, manualIDs(got))
			assert.Equal(t, 4, total)
		})
	}
}

func TestListManuals_TieBreaks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateManual(ctx, makeManual("man-b-old", "Same", day, "a.pdf"), nil))
	require.NoError(t, s.CreateManual(ctx, makeManual("man-b-new", "same", day.Add(time.Hour), "a.pdf"), nil))
	require.NoError(t, s.CreateManual(ctx, makeManual("man-z", "Zebra", day.Add(time.Hour), "a.pdf"), nil))
	require.NoError(t, s.CreateManual(ctx, makeManual("man-a", "Apfel", day.Add(time.Hour), "a.pdf"), nil))

	got, _, err := s.ListManuals(ctx, domain.ListQuery{Sort: domain.SortTitleAsc})
	require.NoError(t, err)
	// Equal titles: newest first.
	assert.Equal(t, []string{"man-a", "man-b-new", "man-b-old", "man-z"}, manualIDs(got))

	got, _, err = s.ListManuals(ctx, domain.ListQuery{Sort: domain.SortDateDesc})
	require.NoError(t, err)
	// Equal dates: title ascending.
	assert.Equal(t, []string{"man-a", "man-b-new", "man-z", "man-b-old"}, manualIDs(got))
}

func TestListManuals_Query(t *testing.T) {
	s := newTestStore(t)
	seedShelf(t, s)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty returns all", "", []string{"man-router", "man-oven", "man-drill", "man-fridge"}},
		{"whitespace returns all", "   ", []string{"man-router", "man-oven", "man-drill", "man-fridge"}},
		{"title case-insensitive", "BOHR", []string{"man-drill"}},
		{"title diacritic-insensitive", "kuhl", []string{"man-fridge"}},
		{"needle with diacritics", "KÜHL", []string{"man-fridge"}},
		{"any file name", "garantie", []string{"man-drill"}},
		{"file name case-insensitive", "anleitung.pdf", []string{"man-oven"}},
		{"underscore is literal", "h_m", []string{"man-drill"}},
		{"percent is literal", "%", nil},
		{"no match", "waschmaschine", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListManuals(ctx, domain.ListQuery{Query: tt.query})
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, manualIDs(got))
			}
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestListManuals_TagFilter(t *testing.T) {
	s := newTestStore(t)
	seedShelf(t, s)
	ctx := context.Background()

	kitchen, err := s.GetTagByName(ctx, "kuche")
	require.NoError(t, err)

	got, _, err := s.ListManuals(ctx, domain.ListQuery{TagID: kitchen.ID, Sort: domain.SortTitleAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"man-oven", "man-fridge"}, manualIDs(got))

	got, _, err = s.ListManuals(ctx, domain.ListQuery{TagID: kitchen.ID, Query: "ofen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"man-oven"}, manualIDs(got))

	got, _, err = s.ListManuals(ctx, domain.ListQuery{TagID: "tag-missing"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListManuals_Paging(t *testing.T) {
	s := newTestStore(t)
	seedShelf(t, s)
	ctx := context.Background()

	got, total, err := s.ListManuals(ctx, domain.ListQuery{Sort: domain.SortDateAsc, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"man-drill", "man-oven"}, manualIDs(got))
	assert.Equal(t, 4, total)

	got, total, err = s.ListManuals(ctx, domain.ListQuery{Sort: domain.SortDateAsc, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"man-router"}, manualIDs(got))
	assert.Equal(t, 4, total)
}

func TestListManuals_LoadsFilesAndTags(t *testing.T) {
	s := newTestStore(t)
	seedShelf(t, s)

	got, _, err := s.ListManuals(context.Background(), domain.ListQuery{Query: "bohr"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Files, 2)
	assert.Equal(t, []string{"bosch_manual.pdf", "garantie.png"}, got[0].FileNames())
	require.Len(t, got[0].Tags(), 1)
	assert.Equal(t, "Werkstatt", got[0].Tags()[0].Name)
}

func TestListQuery_SQL(t *testing.T) {
	query, args, err := listQuery(domain.ListQuery{Query: "Öl", TagID: "tag-1", Sort: domain.SortTitleAsc, Limit: 10})
	require.NoError(t, err)

	assert.Contains(t, query, "m.title_folded LIKE ?")
	assert.Contains(t, query, "file_name_folded LIKE ?")
	assert.Contains(t, query, "ft.tag_id = ?")
	assert.Contains(t, query, "ORDER BY m.title_folded ASC, m.date_added DESC, m.id ASC")
	assert.Contains(t, query, "LIMIT 10")
	assert.Equal(t, []any{"%ol%", "%ol%", "tag-1"}, args)
}
