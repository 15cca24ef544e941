package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/color"
	"github.com/manualshelf/manualshelf-server/internal/domain"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
)

func TestTagService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tag, err := env.tags.Create(ctx, "  Küche  ", color.Default[2].Key)
	require.NoError(t, err)
	assert.Equal(t, "Küche", tag.Name)
	assert.NotEmpty(t, tag.ID)
	assert.False(t, tag.CreatedAt.IsZero())

	_, err = env.tags.Create(ctx, "KUCHE", "")
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	_, err = env.tags.Create(ctx, " ", "")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.tags.Create(ctx, "Garage", "mauve")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestTagService_FindOrCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, created, err := env.tags.FindOrCreate(ctx, "Garage")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := env.tags.FindOrCreate(ctx, "garage")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestTagService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	kitchen, err := env.tags.Create(ctx, "Küche", "")
	require.NoError(t, err)
	_, err = env.tags.Create(ctx, "Garage", "")
	require.NoError(t, err)

	name := "Kitchen"
	key := color.Default[0].Key
	got, err := env.tags.Update(ctx, kitchen.ID, UpdateTagInput{Name: &name, Color: &key})
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", got.Name)
	assert.Equal(t, key, got.Color)

	none := ""
	got, err = env.tags.Update(ctx, kitchen.ID, UpdateTagInput{Color: &none})
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", got.Name)
	assert.Empty(t, got.Color)

	taken := "garage"
	_, err = env.tags.Update(ctx, kitchen.ID, UpdateTagInput{Name: &taken})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	_, err = env.tags.Update(ctx, "tag-missing", UpdateTagInput{Name: &name})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestTagService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := env.createManual(t, "Herd", "Küche")
	tagID := m.Files[0].Tags[0].ID

	require.NoError(t, env.tags.Delete(ctx, tagID))

	got, err := env.manuals.Get(ctx, m.ID)
	require.NoError(t, err)
	for _, f := range got.Files {
		assert.Empty(t, f.Tags)
	}

	assert.ErrorIs(t, env.tags.Delete(ctx, tagID), domainerrors.ErrNotFound)
}

func TestTagService_PruneOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createManual(t, "Herd", "Küche")
	orphan, err := env.tags.Create(ctx, "Garage", "")
	require.NoError(t, err)

	ids, err := env.tags.PruneOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan.ID}, ids)

	ids, err = env.tags.PruneOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTagService_Suggest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"Küche", "Kühlschrank", "Garage", "Garantie"} {
		_, err := env.tags.Create(ctx, name, "")
		require.NoError(t, err)
	}

	names := func(tags []*domain.ManualTag) []string {
		out := make([]string, len(tags))
		for i, t := range tags {
			out[i] = t.Name
		}
		return out
	}

	got, err := env.tags.Suggest(ctx, "kuh", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kühlschrank"}, names(got))

	got, err = env.tags.Suggest(ctx, "GAR", []string{"garage"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Garantie"}, names(got))

	got, err = env.tags.Suggest(ctx, "", nil, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRowColors(t *testing.T) {
	tags := []*domain.ManualTag{
		{Name: "Küche", Color: color.Default[3].Key},
		{Name: "Garage"},
		{Name: "Garantie"},
	}

	pairs := RowColors(tags)
	require.Len(t, pairs, 3)
	assert.Equal(t, color.Default[3], pairs[0])

	seen := make(map[color.Pair]bool)
	for _, p := range pairs {
		assert.False(t, seen[p], "colour %v assigned twice", p)
		seen[p] = true
	}
}
