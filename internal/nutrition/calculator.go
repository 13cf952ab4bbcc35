// Package nutrition estimates recipe nutrition with a model acting as a
// nutritionist over reference food-composition tables.
package nutrition

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"mealcrafter/internal/llm"
	"mealcrafter/internal/recipe"
)

//go:embed prompts/nutrition.md
var nutritionPromptFmt string

const systemPrompt = "You are a professional nutritionist with expertise in calculating accurate nutritional values for recipes."

// Calculator estimates nutrition for an ingredient list.
type Calculator struct {
	textGen llm.TextGenerator
}

// NewCalculator creates a Calculator. A nil generator is allowed; Calculate
// reports the configuration error.
func NewCalculator(textGen llm.TextGenerator) *Calculator {
	return &Calculator{textGen: textGen}
}

// Result pairs the nutrition record with the model-call metadata.
type Result struct {
	Record *recipe.NutritionRecord
	Usage  llm.TokenUsage
}

// rawNutrition uses pointers for the two mandatory sections so their absence
// is detectable after unmarshaling.
type rawNutrition struct {
	Total             *recipe.NutrientTotals `json:"total"`
	PerServing        *recipe.NutrientTotals `json:"per_serving"`
	Servings          int                    `json:"servings"`
	DetailedBreakdown []recipe.BreakdownLine `json:"detailed_breakdown"`
}

// Calculate runs the nutrition prompt over the ingredient list. A response
// missing either the total or per-serving section is a hard failure; there is
// no local estimation fallback.
func (c *Calculator) Calculate(ctx context.Context, ingredients []recipe.Ingredient, servings int) (Result, error) {
	if c.textGen == nil {
		return Result{}, fmt.Errorf("nutrition calculation requires a configured model backend: %w", llm.ErrNoBackend)
	}
	if servings <= 0 {
		servings = recipe.DefaultServings
	}

	prompt := fmt.Sprintf(nutritionPromptFmt, ingredientList(ingredients), servings, servings)

	resp, err := c.textGen.GenerateContent(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.2,
		MaxTokens:    2500,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to calculate nutrition: %w", err)
	}

	record, err := decodeNutrition(resp.Content, servings)
	if err != nil {
		return Result{Usage: resp.Usage}, err
	}
	return Result{Record: record, Usage: resp.Usage}, nil
}

// ingredientList renders ingredients one per line as "- quantity unit name".
// A missing quantity defaults to 1 so the model does not invent amounts.
func ingredientList(ingredients []recipe.Ingredient) string {
	lines := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		quantity := "1"
		if ing.Quantity != nil {
			quantity = *ing.Quantity
		}
		unit := ""
		if ing.Unit != nil {
			unit = *ing.Unit
		}
		lines = append(lines, fmt.Sprintf("- %s %s %s", quantity, unit, ing.Name))
	}
	return strings.Join(lines, "\n")
}

func decodeNutrition(content string, servings int) (*recipe.NutritionRecord, error) {
	repaired, err := llm.RepairJSON(content)
	if err != nil {
		log.Printf("Nutrition parse failed, raw response snippet: %.200s", content)
		return nil, fmt.Errorf("failed to calculate nutrition: %w", err)
	}

	var raw rawNutrition
	if err := json.Unmarshal(repaired, &raw); err != nil {
		log.Printf("Nutrition parse failed, raw response snippet: %.200s", content)
		return nil, fmt.Errorf("failed to calculate nutrition: %w", err)
	}

	if raw.Total == nil || raw.PerServing == nil {
		return nil, fmt.Errorf("invalid nutrition data format")
	}

	if raw.Servings <= 0 {
		raw.Servings = servings
	}

	return &recipe.NutritionRecord{
		Total:             roundTotals(*raw.Total),
		PerServing:        roundTotals(*raw.PerServing),
		Servings:          raw.Servings,
		DetailedBreakdown: raw.DetailedBreakdown,
	}, nil
}

// roundTotals rounds every figure to one decimal for display.
func roundTotals(t recipe.NutrientTotals) recipe.NutrientTotals {
	return recipe.NutrientTotals{
		Calories: round1(t.Calories),
		Protein:  round1(t.Protein),
		Carbs:    round1(t.Carbs),
		Fat:      round1(t.Fat),
		Fiber:    round1(t.Fiber),
		Sugar:    round1(t.Sugar),
		Sodium:   round1(t.Sodium),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
