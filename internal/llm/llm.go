// Package llm provides the model-backend contracts shared by the pipeline
// stages, concrete clients for OpenAI-compatible and Gemini backends, and
// the JSON-repair cascade applied to raw model output.
package llm

import (
	"context"
	"errors"
)

// ErrNoBackend reports that a stage was invoked without a configured model
// backend. Callers use errors.Is to tell configuration problems apart from
// bad model output.
var ErrNoBackend = errors.New("no model backend configured")

// TokenUsage records prompt/completion token counts for one model call.
type TokenUsage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   TokenUsage
}

// Request is a single completion request. Temperature and MaxTokens are
// passed through to the backend unchanged.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req Request) (ContentResponse, error)
}

// VisionGenerator generates text from a prompt plus an inline image.
// Used by the OCR enhancement path.
type VisionGenerator interface {
	GenerateFromImage(ctx context.Context, req Request, imageData []byte) (ContentResponse, error)
}

// EmbeddingGenerator is an interface for generating vector embeddings from text.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
