package search

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealcrafter/internal/database"
	"mealcrafter/internal/recipe"
)

// fixedEmbedder returns canned vectors keyed by substrings of the input text.
type fixedEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (f *fixedEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	for key, vec := range f.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return f.fallback, nil
}

func testIndex(t *testing.T, embedder *fixedEmbedder) *Index {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewIndex(db.SQL, embedder)
}

func record(id, title string) recipe.Record {
	return recipe.Record{
		ID:    id,
		Title: title,
		Parsed: recipe.ParsedRecipe{
			Title:        title,
			Ingredients:  []recipe.Ingredient{{Name: title}},
			Instructions: []string{"Cook."},
		},
	}
}

func TestIndex_QueryRanksByCosine(t *testing.T) {
	embedder := &fixedEmbedder{
		vectors: map[string][]float32{
			"Lentil Soup":   {1, 0, 0},
			"Chocolate Cake": {0, 1, 0},
			"lentils":       {0.9, 0.1, 0},
		},
		fallback: []float32{0, 0, 1},
	}
	ix := testIndex(t, embedder)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, record("soup", "Lentil Soup")))
	require.NoError(t, ix.Add(ctx, record("cake", "Chocolate Cake")))

	matches, err := ix.Query(ctx, "something with lentils", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "soup", matches[0].RecipeID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestIndex_FindSimilarExcludesSelf(t *testing.T) {
	embedder := &fixedEmbedder{
		vectors: map[string][]float32{
			"Dal":  {1, 0, 0},
			"Soup": {0.8, 0.2, 0},
			"Cake": {0, 0, 1},
		},
	}
	ix := testIndex(t, embedder)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, record("dal", "Dal")))
	require.NoError(t, ix.Add(ctx, record("soup", "Soup")))
	require.NoError(t, ix.Add(ctx, record("cake", "Cake")))

	matches, err := ix.FindSimilar(ctx, "dal", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "soup", matches[0].RecipeID)
}

func TestIndex_FindSimilarMissingID(t *testing.T) {
	ix := testIndex(t, &fixedEmbedder{fallback: []float32{1}})

	matches, err := ix.FindSimilar(context.Background(), "ghost", 5)
	require.NoError(t, err)
	assert.Nil(t, matches)
}

func TestIndex_AddUpserts(t *testing.T) {
	embedder := &fixedEmbedder{fallback: []float32{1, 0}}
	ix := testIndex(t, embedder)
	ctx := context.Background()

	rec := record("r", "Rice")
	require.NoError(t, ix.Add(ctx, rec))
	require.NoError(t, ix.Add(ctx, rec))

	matches, err := ix.Query(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestIndex_Remove(t *testing.T) {
	embedder := &fixedEmbedder{fallback: []float32{1, 0}}
	ix := testIndex(t, embedder)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, record("r", "Rice")))
	require.NoError(t, ix.Remove(ctx, "r"))

	matches, err := ix.Query(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_NilEmbedder(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	ix := NewIndex(db.SQL, nil)

	err = ix.Add(context.Background(), record("r", "Rice"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding backend")
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.125, 0}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 2}), "mismatched lengths")
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}), "zero vector")
}
