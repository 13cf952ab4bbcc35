// Package metrics persists per-stage model usage to SQLite.
package metrics

import (
	"context"
	"database/sql"
	"time"

	"mealcrafter/internal/llm"
)

// StageMetric records metadata for one model call in a pipeline stage.
type StageMetric struct {
	Stage            string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m StageMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_metrics (stage, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Stage, m.Model, m.PromptTokens, m.CompletionTokens, m.LatencyMS, ts)
	return err
}

// RecordUsage records token usage for a stage, skipping empty reports.
func (s *Store) RecordUsage(ctx context.Context, stage string, usage llm.TokenUsage, latency time.Duration) error {
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(ctx, StageMetric{
		Stage:            stage,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
	})
}

// StageUsage represents token totals for a single stage.
type StageUsage struct {
	Stage           string
	Calls           int
	TotalPrompt     int
	TotalCompletion int
}

// UsageByStage aggregates usage per stage over the last N days.
func (s *Store) UsageByStage(ctx context.Context, days int) ([]StageUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		FROM pipeline_metrics WHERE timestamp >= ?
		GROUP BY stage ORDER BY stage`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StageUsage
	for rows.Next() {
		var u StageUsage
		if err := rows.Scan(&u.Stage, &u.Calls, &u.TotalPrompt, &u.TotalCompletion); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
