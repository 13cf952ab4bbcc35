package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the configuration for the application.
type Config struct {
	// Model backends. OpenAIAPIKey is required: the parser, nutrition
	// calculator, and health analyzer all run on the chat-completion
	// backend. GeminiAPIKey is optional and enables the embedding-backed
	// search index.
	OpenAIAPIKey string
	OpenAIModel  string
	VisionModel  string
	GeminiAPIKey string

	// Storage paths.
	DatabasePath string
	ImageDir     string

	// Outbound HTTP.
	FetchTimeoutSeconds int
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	visionModel := os.Getenv("OPENAI_VISION_MODEL")
	if visionModel == "" {
		visionModel = model
	}

	dbPath := os.Getenv("MEALCRAFTER_DB_PATH")
	if dbPath == "" {
		dbPath = "data/mealcrafter.db"
	}

	imageDir := os.Getenv("MEALCRAFTER_IMAGE_DIR")
	if imageDir == "" {
		imageDir = "static/recipe_images"
	}

	timeout := 10
	if raw := os.Getenv("MEALCRAFTER_FETCH_TIMEOUT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("MEALCRAFTER_FETCH_TIMEOUT must be a positive integer, got %q", raw)
		}
		timeout = parsed
	}

	return &Config{
		OpenAIAPIKey:        openAIKey,
		OpenAIModel:         model,
		VisionModel:         visionModel,
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		DatabasePath:        dbPath,
		ImageDir:            imageDir,
		FetchTimeoutSeconds: timeout,
	}, nil
}
