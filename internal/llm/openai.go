package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mealcrafter/internal/config"
)

const openAIChatURL = "https://api.openai.com/v1/chat/completions"

// openAIClient is a client for OpenAI-compatible chat-completion endpoints.
type openAIClient struct {
	apiKey      string
	model       string
	visionModel string
	baseURL     string
	httpClient  *http.Client
}

// NewOpenAIClient creates a chat-completion client from the configuration.
// The returned client implements both TextGenerator and VisionGenerator.
func NewOpenAIClient(cfg *config.Config) *openAIClient {
	return &openAIClient{
		apiKey:      cfg.OpenAIAPIKey,
		model:       cfg.OpenAIModel,
		visionModel: cfg.VisionModel,
		baseURL:     openAIChatURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// message is a single chat-completion message. Content is polymorphic: a
// plain string for text-only requests, or a list of content blocks when an
// image rides along.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentBlock is one entry of a multi-part message.
type contentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// GenerateContent sends a prompt to the chat model and returns the generated text.
func (c *openAIClient) GenerateContent(ctx context.Context, req Request) (ContentResponse, error) {
	messages := []message{}
	if req.SystemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, message{Role: "user", Content: req.UserPrompt})

	return c.complete(ctx, c.model, messages, req)
}

// GenerateFromImage sends a prompt plus an inline base64 image to the
// vision-capable model and returns the generated text.
func (c *openAIClient) GenerateFromImage(ctx context.Context, req Request, imageData []byte) (ContentResponse, error) {
	encoded := base64.StdEncoding.EncodeToString(imageData)

	messages := []message{}
	if req.SystemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, message{
		Role: "user",
		Content: []contentBlock{
			{Type: "text", Text: req.UserPrompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL: "data:image/jpeg;base64," + encoded,
			}},
		},
	})

	return c.complete(ctx, c.visionModel, messages, req)
}

func (c *openAIClient) complete(ctx context.Context, model string, messages []message, req Request) (ContentResponse, error) {
	reqBody := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		reqBody["max_tokens"] = req.MaxTokens
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return ContentResponse{}, fmt.Errorf("chat api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	return ContentResponse{
		Content: chatResp.Choices[0].Message.Content,
		Usage: TokenUsage{
			Model:            model,
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		},
	}, nil
}
