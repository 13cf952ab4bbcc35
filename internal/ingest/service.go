// Package ingest normalizes raw recipe input (text, URL, video URL, or
// image) and drives it through the parsing, nutrition, and health stages to
// produce one canonical record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"mealcrafter/internal/health"
	"mealcrafter/internal/imagesearch"
	"mealcrafter/internal/images"
	"mealcrafter/internal/llm"
	"mealcrafter/internal/nutrition"
	"mealcrafter/internal/ocr"
	"mealcrafter/internal/parse"
	"mealcrafter/internal/recipe"
	"mealcrafter/internal/scrape"
	"mealcrafter/internal/video"
)

// Error taxonomy for the whole pipeline. Lower stages return descriptive
// errors; Ingest wraps them in exactly one of these sentinels so callers can
// errors.Is without string matching.
var (
	ErrConfiguration     = errors.New("pipeline configuration error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrFetch             = errors.New("failed to fetch source")
	ErrExtractionEmpty   = errors.New("no usable content extracted")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrPlatformPolicy    = errors.New("platform policy restriction")
)

// Source classifies raw input.
type Source string

const (
	SourceText  Source = "text"
	SourceURL   Source = "url"
	SourceVideo Source = "video"
	SourceImage Source = "image"
)

// ClassifySource decides which extraction branch a raw input string takes.
// Anything starting with a URL prefix is a URL; URLs whose host matches a
// known video platform go to the video branch; everything else is literal
// recipe text.
func ClassifySource(raw string) Source {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") && !strings.HasPrefix(trimmed, "www.") {
		return SourceText
	}
	if video.DetectPlatform(normalizeURL(trimmed)) != recipe.PlatformOther {
		return SourceVideo
	}
	return SourceURL
}

// normalizeURL gives scheme-less www. inputs a scheme so url.Parse and the
// HTTP client accept them.
func normalizeURL(raw string) string {
	if strings.HasPrefix(raw, "www.") {
		return "https://" + raw
	}
	return raw
}

// UsageRecorder receives per-stage token usage. Satisfied by metrics.Store.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, stage string, usage llm.TokenUsage, latency time.Duration) error
}

// Deps are the pipeline collaborators. Scraper, Videos, Parser, Fallback,
// Nutrition, and Health are required; the rest are optional extras.
type Deps struct {
	Scraper   *scrape.Scraper
	Videos    *video.Extractor
	Parser    *parse.AIParser
	Fallback  *parse.FallbackParser
	Nutrition *nutrition.Calculator
	Health    *health.Analyzer

	OCR         *ocr.Service
	ImageSearch *imagesearch.Searcher
	ImageStore  *images.Store
	Metrics     UsageRecorder
}

// Service is the pipeline orchestrator.
type Service struct {
	deps Deps
}

// NewService creates a Service over the given collaborators.
func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Options carry caller-supplied hints and mode flags for one ingestion.
type Options struct {
	// Title, CuisineType, and DietaryTags override or supplement what the
	// parser detects.
	Title       string
	CuisineType string
	DietaryTags []string

	// PreserveOriginal forbids rewording of instruction text and enables
	// the deterministic fallback parser when the model parse fails.
	PreserveOriginal bool

	// FromOCR marks the text as OCR output so the parser corrects
	// character-confusion errors.
	FromOCR bool
}

// Result is one completed ingestion.
type Result struct {
	Record       recipe.Record
	Source       Source
	UsedFallback bool
	Usage        []llm.TokenUsage
}

// Ingest classifies raw input, extracts a text blob, and runs the parsing,
// nutrition, and health stages sequentially. Each stage depends on the
// previous one's output; a single stage failure fails the invocation.
func (s *Service) Ingest(ctx context.Context, raw string, opts Options) (*Result, error) {
	if err := s.checkDeps(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: recipe text is empty", ErrInvalidInput)
	}

	source := ClassifySource(text)
	var (
		urlTitle   string
		videoTitle string
		imageURL   string
	)

	switch source {
	case SourceURL:
		page, err := s.deps.Scraper.Scrape(ctx, normalizeURL(text))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to fetch recipe from URL: %v", ErrFetch, err)
		}
		text = page.Text
		if page.StructuredData != nil {
			urlTitle = page.StructuredData.Title
		}
		imageURL = page.ImageURL
		log.Printf("Scraped recipe from URL. Title: %q, Image: %q", urlTitle, imageURL)

	case SourceVideo:
		ext, err := s.deps.Videos.Extract(ctx, normalizeURL(text))
		if err != nil {
			if errors.Is(err, video.ErrAuthRequired) {
				return nil, fmt.Errorf("%w: %v", ErrPlatformPolicy, err)
			}
			return nil, fmt.Errorf("%w: failed to extract recipe from video: %v", ErrFetch, err)
		}
		text = ext.RecipeText
		videoTitle = ext.Title
		imageURL = ext.Thumbnail
		log.Printf("Extracted %s video content. Title: %q", ext.Platform, videoTitle)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: source contained no recipe text", ErrExtractionEmpty)
	}

	result := &Result{Source: source}

	parsed, err := s.parseStage(ctx, text, opts, result)
	if err != nil {
		return nil, err
	}

	nutritionRecord, err := s.nutritionStage(ctx, parsed, result)
	if err != nil {
		return nil, err
	}

	healthRecord, err := s.healthStage(ctx, parsed, nutritionRecord, result)
	if err != nil {
		return nil, err
	}

	applyOverrides(parsed, opts)

	title := resolveTitle(source, urlTitle, videoTitle, opts.Title, parsed.Title)
	rec := recipe.Record{
		ID:        uuid.NewString(),
		Title:     title,
		RawText:   raw,
		Parsed:    *parsed,
		Nutrition: *nutritionRecord,
		Health:    *healthRecord,
	}
	rec.ImageURL = s.resolveImage(ctx, imageURL, rec)

	result.Record = rec
	return result, nil
}

// IngestImage runs OCR over image bytes and feeds the recognized text into
// the text pipeline with the OCR flag set.
func (s *Service) IngestImage(ctx context.Context, imageData []byte, opts Options) (*Result, error) {
	if s.deps.OCR == nil {
		return nil, fmt.Errorf("%w: OCR is not configured", ErrConfiguration)
	}
	if err := ocr.ValidateImage(imageData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	text, err := s.deps.OCR.ExtractText(ctx, imageData, opts.PreserveOriginal)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionEmpty, err)
	}

	opts.FromOCR = true
	res, err := s.Ingest(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	res.Source = SourceImage
	return res, nil
}

func (s *Service) checkDeps() error {
	d := s.deps
	if d.Scraper == nil || d.Videos == nil || d.Parser == nil || d.Fallback == nil || d.Nutrition == nil || d.Health == nil {
		return fmt.Errorf("%w: missing pipeline collaborator", ErrConfiguration)
	}
	return nil
}

// parseStage runs the model parser and, in preserve-original mode only,
// falls over to the deterministic parser on failure. The fallback is an
// explicit check here, not error-driven control flow inside the parser.
func (s *Service) parseStage(ctx context.Context, text string, opts Options, result *Result) (*recipe.ParsedRecipe, error) {
	start := time.Now()
	parsed, err := s.deps.Parser.Parse(ctx, text, parse.Options{
		IsOCRText:        opts.FromOCR,
		PreserveOriginal: opts.PreserveOriginal,
	})
	s.recordUsage(ctx, "parse", parsed.Usage, time.Since(start))

	if err == nil {
		result.Usage = append(result.Usage, parsed.Usage)
		return parsed.Recipe, nil
	}
	if errors.Is(err, llm.ErrNoBackend) {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if opts.PreserveOriginal {
		log.Printf("Model parse failed, trying deterministic parser: %v", err)
		fallbackRecipe, fallbackErr := s.deps.Fallback.Parse(text)
		if fallbackErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		result.UsedFallback = true
		return fallbackRecipe, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}

func (s *Service) nutritionStage(ctx context.Context, parsed *recipe.ParsedRecipe, result *Result) (*recipe.NutritionRecord, error) {
	start := time.Now()
	res, err := s.deps.Nutrition.Calculate(ctx, parsed.Ingredients, parsed.Servings)
	s.recordUsage(ctx, "nutrition", res.Usage, time.Since(start))
	if err != nil {
		if errors.Is(err, llm.ErrNoBackend) {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	result.Usage = append(result.Usage, res.Usage)
	return res.Record, nil
}

func (s *Service) healthStage(ctx context.Context, parsed *recipe.ParsedRecipe, nutritionRecord *recipe.NutritionRecord, result *Result) (*recipe.HealthRecord, error) {
	start := time.Now()
	res, err := s.deps.Health.Analyze(ctx, parsed, nutritionRecord)
	s.recordUsage(ctx, "health", res.Usage, time.Since(start))
	if err != nil {
		if errors.Is(err, llm.ErrNoBackend) {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	result.Usage = append(result.Usage, res.Usage)
	return res.Record, nil
}

func (s *Service) recordUsage(ctx context.Context, stage string, usage llm.TokenUsage, latency time.Duration) {
	if s.deps.Metrics == nil {
		return
	}
	if err := s.deps.Metrics.RecordUsage(ctx, stage, usage, latency); err != nil {
		log.Printf("Warning: failed to record %s metrics: %v", stage, err)
	}
}

func applyOverrides(parsed *recipe.ParsedRecipe, opts Options) {
	if opts.CuisineType != "" {
		cuisine := opts.CuisineType
		parsed.CuisineType = &cuisine
	}
	if len(opts.DietaryTags) > 0 {
		parsed.DietaryTags = opts.DietaryTags
	}
}

// resolveTitle applies the title precedence rules: URL/structured title wins
// for page sources, the parsed title wins for video sources, and the
// caller's hint slots in between.
func resolveTitle(source Source, urlTitle, videoTitle, callerTitle, parsedTitle string) string {
	var order []string
	if source == SourceVideo {
		order = []string{parsedTitle, callerTitle, videoTitle}
	} else {
		order = []string{urlTitle, callerTitle, parsedTitle}
	}
	for _, t := range order {
		if strings.TrimSpace(t) != "" {
			return t
		}
	}
	return "Untitled Recipe"
}

// resolveImage keeps the source image when there is one, otherwise searches
// for a stock photo. Either way a configured local store gets a copy;
// storage failures degrade to the remote URL.
func (s *Service) resolveImage(ctx context.Context, imageURL string, rec recipe.Record) string {
	if imageURL == "" && s.deps.ImageSearch != nil {
		imageURL = s.deps.ImageSearch.Search(ctx, rec.Title)
		if imageURL == "" {
			imageURL = s.deps.ImageSearch.FallbackImage(ctx, rec.Title)
		}
	}
	if imageURL == "" || s.deps.ImageStore == nil {
		return imageURL
	}

	stored, err := s.deps.ImageStore.Download(ctx, imageURL, rec.ID)
	if err != nil {
		log.Printf("Warning: failed to store image locally: %v", err)
		return imageURL
	}
	return stored
}
