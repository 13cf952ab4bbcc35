package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Repository is a database-backed repository for recipe records. The full
// record is stored as a JSON document; title is denormalized for listing.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or updates a record.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (id, title, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, data = excluded.data, updated_at = excluded.updated_at`,
		rec.ID, rec.Title, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// Get retrieves a record by its ID. A missing ID returns (nil, nil).
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM recipes WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	return &rec, nil
}

// List retrieves all records, newest first. A row with corrupted JSON is
// logged and skipped rather than failing the whole listing.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM recipes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			log.Printf("Warning: failed to unmarshal recipe JSON for ID %s: %v", id, err)
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a record by ID. It reports whether a row was removed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete recipe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of stored records.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return count, nil
}
