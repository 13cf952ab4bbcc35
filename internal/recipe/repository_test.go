package recipe_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealcrafter/internal/database"
	"mealcrafter/internal/recipe"
)

func testRepo(t *testing.T) *recipe.Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return recipe.NewRepository(db.SQL)
}

func sampleRecord(id, title string) recipe.Record {
	qty := "2"
	unit := "cups"
	return recipe.Record{
		ID:      id,
		Title:   title,
		RawText: "raw source text",
		Parsed: recipe.ParsedRecipe{
			Title:        title,
			Ingredients:  []recipe.Ingredient{{Name: "rice", Quantity: &qty, Unit: &unit}},
			Instructions: []string{"Rinse the rice.", "Cook until tender."},
			Servings:     4,
		},
	}
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	rec := sampleRecord("r1", "Steamed Rice")
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Steamed Rice", got.Title)
	require.Len(t, got.Parsed.Ingredients, 1)
	assert.Equal(t, "rice", got.Parsed.Ingredients[0].Name)
	require.NotNil(t, got.Parsed.Ingredients[0].Quantity)
	assert.Equal(t, "2", *got.Parsed.Ingredients[0].Quantity)
}

func TestRepository_SaveUpserts(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleRecord("r1", "First Title")))
	require.NoError(t, repo.Save(ctx, sampleRecord("r1", "Second Title")))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Second Title", got.Title)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepository_ListAndDelete(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleRecord("r1", "One")))
	require.NoError(t, repo.Save(ctx, sampleRecord("r2", "Two")))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	deleted, err := repo.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, deleted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
