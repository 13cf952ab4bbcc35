package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"mealcrafter/internal/config"
	"mealcrafter/internal/database"
	"mealcrafter/internal/health"
	"mealcrafter/internal/imagesearch"
	"mealcrafter/internal/images"
	"mealcrafter/internal/ingest"
	"mealcrafter/internal/llm"
	"mealcrafter/internal/metrics"
	"mealcrafter/internal/nutrition"
	"mealcrafter/internal/ocr"
	"mealcrafter/internal/parse"
	"mealcrafter/internal/recipe"
	"mealcrafter/internal/scrape"
	"mealcrafter/internal/search"
	"mealcrafter/internal/video"
)

var rootCmd = &cobra.Command{
	Use:   "mealcrafter",
	Short: "mealcrafter: turn any recipe source into a structured record",
	Long: `mealcrafter ingests recipes from plain text, web pages, cooking videos,
and photos, normalizes them into one canonical schema, and enriches each
with nutrition figures and a health analysis.

Usage:
  mealcrafter ingest "https://example.com/best-dal" `,
	SilenceUsage: true,
}

// app bundles the wired collaborators a command needs.
type app struct {
	cfg     *config.Config
	db      *database.DB
	repo    *recipe.Repository
	index   *search.Index
	metrics *metrics.Store
	ingest  *ingest.Service

	closers []llm.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// buildApp wires the full pipeline from environment configuration.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		repo:    recipe.NewRepository(db.SQL),
		metrics: metrics.NewStore(db.SQL),
	}

	chat := llm.NewOpenAIClient(cfg)

	// Embeddings are optional: without a Gemini key the similarity index
	// is disabled but ingestion still works.
	var embedder llm.EmbeddingGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, gemini)
		embedder = gemini
	}
	a.index = search.NewIndex(db.SQL, embedder)

	fetchTimeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	a.ingest = ingest.NewService(ingest.Deps{
		Scraper:     scrape.NewScraper(fetchTimeout),
		Videos:      video.NewExtractor(video.NewOEmbedFetcher(fetchTimeout), nil),
		Parser:      parse.NewAIParser(chat),
		Fallback:    parse.NewFallbackParser(),
		Nutrition:   nutrition.NewCalculator(chat),
		Health:      health.NewAnalyzer(chat),
		OCR:         ocr.NewService(ocr.NewTesseractEngine(), chat),
		ImageSearch: imagesearch.NewSearcher(fetchTimeout),
		ImageStore:  images.NewStore(cfg.ImageDir, "/static/recipe_images"),
		Metrics:     a.metrics,
	})
	return a, nil
}
