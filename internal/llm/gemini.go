package llm

import (
	"context"
	"fmt"

	"mealcrafter/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiClient is a client for the Google Gemini API. It serves as an
// alternate text generator and as the embedding backend for the search index.
type geminiClient struct {
	client         *genai.Client
	model          *genai.GenerativeModel
	embeddingModel *genai.EmbeddingModel
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*geminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiClient{
		client:         client,
		model:          client.GenerativeModel("gemini-1.5-flash"),
		embeddingModel: client.EmbeddingModel("text-embedding-004"),
	}, nil
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *geminiClient) GenerateContent(ctx context.Context, req Request) (ContentResponse, error) {
	model := c.model
	model.SetTemperature(float32(req.Temperature))
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return ContentResponse{}, fmt.Errorf("generated content is not text")
	}

	usage := TokenUsage{Model: "gemini-1.5-flash"}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return ContentResponse{Content: string(text), Usage: usage}, nil
}

// GenerateEmbedding returns the embedding vector for the given text.
func (c *geminiClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := c.embeddingModel.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("no embedding generated")
	}
	return res.Embedding.Values, nil
}

// Close closes the underlying Gemini client.
func (c *geminiClient) Close() error {
	return c.client.Close()
}
