// Package search maintains a vector index over stored recipes for
// similarity lookups.
package search

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"slices"

	"mealcrafter/internal/llm"
	"mealcrafter/internal/recipe"
)

// Index stores one embedding per recipe and answers nearest-neighbour
// queries by scanning all rows. Fine at the scale of a personal recipe
// collection.
type Index struct {
	db       *sql.DB
	embedder llm.EmbeddingGenerator
}

// NewIndex creates an Index over the shared database connection.
func NewIndex(d *sql.DB, embedder llm.EmbeddingGenerator) *Index {
	return &Index{db: d, embedder: embedder}
}

// Add embeds the record's document and stores the vector.
func (ix *Index) Add(ctx context.Context, rec recipe.Record) error {
	if ix.embedder == nil {
		return fmt.Errorf("search index requires a configured embedding backend")
	}

	embedding, err := ix.embedder.GenerateEmbedding(ctx, rec.Document())
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	_, err = ix.db.ExecContext(ctx, `
		INSERT INTO recipe_embeddings (recipe_id, embedding) VALUES (?, ?)
		ON CONFLICT(recipe_id) DO UPDATE SET embedding = excluded.embedding`,
		rec.ID, encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

// Remove drops a recipe's vector from the index.
func (ix *Index) Remove(ctx context.Context, recipeID string) error {
	_, err := ix.db.ExecContext(ctx, `DELETE FROM recipe_embeddings WHERE recipe_id = ?`, recipeID)
	if err != nil {
		return fmt.Errorf("failed to remove embedding: %w", err)
	}
	return nil
}

// Match is one similarity result.
type Match struct {
	RecipeID string
	Score    float64
}

// Query embeds the free-text query and returns the top matching recipe IDs
// by cosine similarity, best first.
func (ix *Index) Query(ctx context.Context, query string, limit int) ([]Match, error) {
	if ix.embedder == nil {
		return nil, fmt.Errorf("search index requires a configured embedding backend")
	}
	queryVec, err := ix.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return ix.findSimilar(ctx, queryVec, limit, nil)
}

// FindSimilar returns recipes closest to the given recipe, excluding itself.
func (ix *Index) FindSimilar(ctx context.Context, recipeID string, limit int) ([]Match, error) {
	var blob []byte
	err := ix.db.QueryRowContext(ctx,
		`SELECT embedding FROM recipe_embeddings WHERE recipe_id = ?`, recipeID).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get embedding by recipe ID: %w", err)
	}

	vec, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return ix.findSimilar(ctx, vec, limit, []string{recipeID})
}

func (ix *Index) findSimilar(ctx context.Context, queryVec []float32, limit int, excludeIDs []string) ([]Match, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT recipe_id, embedding FROM recipe_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()

	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	var matches []Match
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		if _, skip := exclude[id]; skip {
			continue
		}
		vec, err := decodeVector(blob)
		if err != nil {
			log.Printf("Warning: failed to decode embedding for recipe ID %s: %v", id, err)
			continue
		}
		matches = append(matches, Match{RecipeID: id, Score: cosineSimilarity(queryVec, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// encodeVector packs a float32 slice into little-endian bytes.
func encodeVector(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(floats))
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length is not a multiple of 4")
	}
	floats := make([]float32, len(b)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return floats, nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
