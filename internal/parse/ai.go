package parse

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"mealcrafter/internal/llm"
	"mealcrafter/internal/recipe"
)

//go:embed prompts/standard.md
var standardPrompt string

//go:embed prompts/preserve.md
var preservePrompt string

// ocrGuidance is appended to the prompt when the input came through OCR.
// Character-level correction is the model's job, not the parser's.
const ocrGuidance = `
NOTE: The recipe text below was extracted from an image with OCR and may
contain character-confusion errors (0 vs O, 1 vs l, 5 vs S). Correct such
errors when the intended word or number is obvious from context.
`

const systemPrompt = "You are a helpful recipe parser that extracts structured data from recipe text."

// Options select the prompt protocol for one parse call. PreserveOriginal
// and the standard rewrite protocol are mutually exclusive.
type Options struct {
	IsOCRText        bool
	PreserveOriginal bool
}

// Result pairs the parsed recipe with the model-call metadata.
type Result struct {
	Recipe *recipe.ParsedRecipe
	Usage  llm.TokenUsage
}

// AIParser turns an arbitrary text blob into the canonical recipe schema via
// a constrained-generation prompt protocol.
type AIParser struct {
	textGen llm.TextGenerator
}

// NewAIParser creates an AIParser. A nil generator is allowed at
// construction time; Parse reports the configuration error.
func NewAIParser(textGen llm.TextGenerator) *AIParser {
	return &AIParser{textGen: textGen}
}

// rawRecipe mirrors the JSON shape the prompts request. Ingredients arrive
// as loose maps so extraneous model-added keys can be dropped during
// coercion.
type rawRecipe struct {
	Title        string           `json:"title"`
	Ingredients  []map[string]any `json:"ingredients"`
	Instructions []string         `json:"instructions"`
	Servings     int              `json:"servings"`
	CuisineType  *string          `json:"cuisine_type"`
	DietaryTags  []string         `json:"dietary_tags"`
}

// Parse runs the selected prompt protocol over the text and post-processes
// the model response into the canonical schema. A parse that cannot populate
// both ingredients and instructions fails rather than returning a partially
// empty structure.
func (p *AIParser) Parse(ctx context.Context, text string, opts Options) (Result, error) {
	if p.textGen == nil {
		return Result{}, fmt.Errorf("recipe parsing requires a configured model backend: %w", llm.ErrNoBackend)
	}

	prompt := standardPrompt
	if opts.PreserveOriginal {
		prompt = preservePrompt
	}
	if opts.IsOCRText {
		prompt = prompt + ocrGuidance
	}

	resp, err := p.textGen.GenerateContent(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt + "\n" + text,
		Temperature:  0.3,
		MaxTokens:    3000,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to get model response: %w", err)
	}

	parsed, err := decodeRecipe(resp.Content)
	if err != nil {
		return Result{Usage: resp.Usage}, err
	}

	return Result{Recipe: parsed, Usage: resp.Usage}, nil
}

// decodeRecipe applies the JSON-repair cascade and coerces the result into
// the canonical schema.
func decodeRecipe(content string) (*recipe.ParsedRecipe, error) {
	repaired, err := llm.RepairJSON(content)
	if err != nil {
		log.Printf("Recipe parse failed, raw response snippet: %.200s", content)
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	var raw rawRecipe
	if err := json.Unmarshal(repaired, &raw); err != nil {
		log.Printf("Recipe parse failed, raw response snippet: %.200s", content)
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	ingredients := coerceIngredients(raw.Ingredients)
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("model response contained no usable ingredients")
	}
	if len(raw.Instructions) == 0 {
		return nil, fmt.Errorf("model response contained no instructions")
	}

	title := raw.Title
	if title == "" {
		title = "Untitled Recipe"
	}
	servings := raw.Servings
	if servings <= 0 {
		servings = recipe.DefaultServings
	}

	return &recipe.ParsedRecipe{
		Title:        title,
		Ingredients:  ingredients,
		Instructions: raw.Instructions,
		Servings:     servings,
		CuisineType:  raw.CuisineType,
		DietaryTags:  raw.DietaryTags,
	}, nil
}

// coerceIngredients reduces each model-supplied ingredient to exactly the
// three canonical fields, dropping anything else the model added. The
// forbidden "as needed" quantity is substituted with "to taste".
func coerceIngredients(raw []map[string]any) []recipe.Ingredient {
	var out []recipe.Ingredient
	for _, entry := range raw {
		name, _ := entry["name"].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}

		ing := recipe.Ingredient{Name: name}
		if q := stringField(entry, "quantity"); q != nil {
			if strings.EqualFold(strings.TrimSpace(*q), "as needed") {
				substituted := "to taste"
				ing.Quantity = &substituted
			} else {
				ing.Quantity = q
			}
		}
		ing.Unit = stringField(entry, "unit")
		out = append(out, ing)
	}
	return out
}

// stringField reads a field that may arrive as a string or a number.
func stringField(entry map[string]any, key string) *string {
	switch v := entry[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return &v
	case float64:
		s := strings.TrimSuffix(fmt.Sprintf("%g", v), ".0")
		return &s
	default:
		return nil
	}
}
