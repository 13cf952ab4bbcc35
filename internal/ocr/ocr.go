// Package ocr extracts recipe text from images. Character recognition runs
// through the Engine interface (tesseract by default) over several
// preprocessed variants of the image; a vision model cleans up the result
// when one is configured.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"mealcrafter/internal/llm"
)

const (
	minDimension = 200
	maxDimension = 4000
	maxFileSize  = 10 * 1024 * 1024
)

// Engine recognizes text in a single image.
type Engine interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
}

// Service runs OCR with preprocessing and optional model enhancement.
type Service struct {
	engine Engine
	vision llm.VisionGenerator
}

// NewService creates a Service. The vision generator may be nil, in which
// case raw OCR output is cleaned heuristically instead.
func NewService(engine Engine, vision llm.VisionGenerator) *Service {
	return &Service{engine: engine, vision: vision}
}

// ValidateImage rejects images unsuitable for OCR before any work is done.
func ValidateImage(data []byte) error {
	if len(data) > maxFileSize {
		return fmt.Errorf("image file is too large: maximum file size is 10MB")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid image file: %w", err)
	}
	if cfg.Width < minDimension || cfg.Height < minDimension {
		return fmt.Errorf("image is too small: minimum size is 200x200 pixels")
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		return fmt.Errorf("image is too large: maximum size is 4000x4000 pixels")
	}
	return nil
}

// ExtractText runs OCR over the image and returns recipe text. Recognition
// runs on each preprocessing variant and the longest result wins. When a
// vision model is configured it re-reads the image to correct OCR errors;
// preserveOriginal keeps the source wording untouched during that pass.
func (s *Service) ExtractText(ctx context.Context, data []byte, preserveOriginal bool) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to extract text from image: %w", err)
	}

	raw := s.bestVariantText(ctx, img)
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("could not extract any text from the image")
	}

	if s.vision != nil {
		enhanced, err := s.enhance(ctx, raw, data, preserveOriginal)
		if err != nil {
			log.Printf("Vision enhancement failed, using raw OCR: %v", err)
			return basicTextCleaning(raw), nil
		}
		return enhanced, nil
	}
	return raw, nil
}

// bestVariantText recognizes each preprocessing variant and keeps the output
// with the most characters. A variant that errors is skipped.
func (s *Service) bestVariantText(ctx context.Context, img image.Image) string {
	best := ""
	for _, variant := range variants(img) {
		text, err := s.engine.ExtractText(ctx, variant)
		if err != nil {
			continue
		}
		if len(strings.TrimSpace(text)) > len(strings.TrimSpace(best)) {
			best = text
		}
	}
	return best
}

const (
	preserveSystemPrompt = `You are an expert at reading and transcribing recipes from images EXACTLY as written.
Your task is to extract the recipe text from the provided image, correcting ONLY obvious OCR errors.
DO NOT:
- Reformat or reorganize the text
- Change wording or phrasing
- Add formatting like "###" or bullet points that aren't in the original
- Improve grammar or style

DO:
- Fix obvious OCR errors (like 0 instead of O, 1 instead of l)
- Keep the exact original wording and structure
- Preserve the original formatting as much as possible

Extract the text EXACTLY as it appears in the image.`

	standardSystemPrompt = `You are an expert at reading and transcribing recipes from images.
Your task is to extract the recipe text from the provided image, correcting any OCR errors
and formatting it properly. Focus on:
1. Recipe title
2. Ingredients list (with quantities and units)
3. Instructions/directions
4. Any notes about servings, cooking time, or temperature

Format the output as clean, readable recipe text.`
)

func (s *Service) enhance(ctx context.Context, ocrText string, imageData []byte, preserveOriginal bool) (string, error) {
	systemPrompt := standardSystemPrompt
	if preserveOriginal {
		systemPrompt = preserveSystemPrompt
	}

	snippet := ocrText
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}

	resp, err := s.vision.GenerateFromImage(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   "Please extract and format the recipe from this image. Here's what OCR detected (may have errors): " + snippet,
		Temperature:  0.2,
		MaxTokens:    2000,
	}, imageData)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

var (
	sectionIngredientWords  = []string{"ingredient", "material", "item"}
	sectionInstructionWords = []string{"instruction", "direction", "method", "step"}
	sectionServingWords     = []string{"serve", "serving", "yield", "make"}
)

// basicTextCleaning normalizes raw OCR output without a model: sections get
// headers, ingredient lines get bullets, instruction lines keep their own
// numbering when they have one.
func basicTextCleaning(text string) string {
	var cleaned []string
	section := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case containsAny(lower, sectionIngredientWords):
			section = "ingredients"
			cleaned = append(cleaned, "\nIngredients:")
		case containsAny(lower, sectionInstructionWords):
			section = "instructions"
			cleaned = append(cleaned, "\nInstructions:")
		case containsAny(lower, sectionServingWords):
			section = ""
			cleaned = append(cleaned, "\n"+line)
		case section == "ingredients" && !strings.HasSuffix(line, ":"):
			cleaned = append(cleaned, "- "+line)
		case section == "instructions" && !strings.HasSuffix(line, ":"):
			if line[0] >= '0' && line[0] <= '9' || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				cleaned = append(cleaned, line)
			} else {
				cleaned = append(cleaned, "- "+line)
			}
		default:
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
