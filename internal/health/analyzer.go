// Package health scores a parsed recipe with a model acting as a
// nutritionist and renders its analysis into a markdown breakdown.
package health

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"mealcrafter/internal/llm"
	"mealcrafter/internal/recipe"
)

//go:embed prompts/health.md
var healthPromptBody string

const systemPrompt = "You are a professional nutritionist who understands both Western and Indian cuisine health benefits."

// Analyzer produces a health score and breakdown for a parsed recipe.
type Analyzer struct {
	textGen llm.TextGenerator
}

// NewAnalyzer creates an Analyzer. A nil generator is allowed; Analyze
// reports the configuration error.
func NewAnalyzer(textGen llm.TextGenerator) *Analyzer {
	return &Analyzer{textGen: textGen}
}

// Result pairs the health record with the model-call metadata.
type Result struct {
	Record *recipe.HealthRecord
	Usage  llm.TokenUsage
}

// Analyze runs the health prompt over the recipe and its nutrition figures.
// The returned score is always clamped into [1,10], whatever the model says.
func (a *Analyzer) Analyze(ctx context.Context, parsed *recipe.ParsedRecipe, nutrition *recipe.NutritionRecord) (Result, error) {
	if a.textGen == nil {
		return Result{}, fmt.Errorf("health analysis requires a configured model backend: %w", llm.ErrNoBackend)
	}

	resp, err := a.textGen.GenerateContent(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(parsed, nutrition),
		Temperature:  0.3,
		MaxTokens:    2500,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to analyze health: %w", err)
	}

	record, err := decodeAnalysis(resp.Content)
	if err != nil {
		return Result{Usage: resp.Usage}, err
	}
	return Result{Record: record, Usage: resp.Usage}, nil
}

func buildPrompt(parsed *recipe.ParsedRecipe, nutrition *recipe.NutritionRecord) string {
	var ingredients []string
	for _, ing := range parsed.Ingredients {
		quantity := ""
		if ing.Quantity != nil {
			quantity = *ing.Quantity
		}
		unit := ""
		if ing.Unit != nil {
			unit = *ing.Unit
		}
		ingredients = append(ingredients, fmt.Sprintf("- %s %s %s", quantity, unit, ing.Name))
	}

	var instructions []string
	for i, inst := range parsed.Instructions {
		instructions = append(instructions, fmt.Sprintf("%d. %s", i+1, inst))
	}

	nutritionText := "Per serving nutrition: unknown"
	if nutrition != nil {
		ps := nutrition.PerServing
		nutritionText = fmt.Sprintf(`Per serving nutrition:
- Calories: %g
- Protein: %gg
- Carbs: %gg
- Fat: %gg
- Fiber: %gg
- Sodium: %gmg`, ps.Calories, ps.Protein, ps.Carbs, ps.Fat, ps.Fiber, ps.Sodium)
	}

	return fmt.Sprintf(`You are a professional nutritionist analyzing a recipe. Provide a detailed health analysis.

Recipe Ingredients:
%s

Cooking Instructions:
%s

%s

%s`, strings.Join(ingredients, "\n"), strings.Join(instructions, "\n"), nutritionText, healthPromptBody)
}

// rawAnalysis mirrors the JSON structure the prompt requests. Tips and
// pairings stay raw because models return them in several shapes.
type rawAnalysis struct {
	Score                  *float64          `json:"score"`
	Summary                string            `json:"summary"`
	HealthyAspects         []aspect          `json:"healthy_aspects"`
	WatchPoints            []watchPoint      `json:"watch_points"`
	NutritionalHighlights  *highlights       `json:"nutritional_highlights"`
	DietaryConsiderations  *dietary          `json:"dietary_considerations"`
	ImprovementTips        []json.RawMessage `json:"improvement_tips"`
	MealPairingSuggestions []json.RawMessage `json:"meal_pairing_suggestions"`
}

type aspect struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type watchPoint struct {
	Ingredient string `json:"ingredient"`
	Concern    string `json:"concern"`
}

type highlights struct {
	Vitamins         []string `json:"vitamins"`
	Minerals         []string `json:"minerals"`
	Macros           *macros  `json:"macros"`
	SpecialCompounds []string `json:"special_compounds"`
}

type macros struct {
	ProteinQuality string `json:"protein_quality"`
	CarbQuality    string `json:"carb_quality"`
	FatQuality     string `json:"fat_quality"`
}

type dietary struct {
	SuitableFor []string          `json:"suitable_for"`
	MayNotSuit  []string          `json:"may_not_suit"`
	Conditions  orderedConditions `json:"modifications_for_conditions"`
}

type conditionAdvice struct {
	Condition string
	Advice    string
}

// orderedConditions preserves the object key order of
// modifications_for_conditions, since only the first few are rendered.
type orderedConditions []conditionAdvice

func (o *orderedConditions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("modifications_for_conditions is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var advice any
		if err := dec.Decode(&advice); err != nil {
			return err
		}
		*o = append(*o, conditionAdvice{Condition: key, Advice: fmt.Sprintf("%v", advice)})
	}
	return nil
}

const defaultScore = 7

func decodeAnalysis(content string) (*recipe.HealthRecord, error) {
	repaired, err := llm.RepairJSON(content)
	if err != nil {
		log.Printf("Health analysis parse failed, raw response snippet: %.200s", content)
		return nil, fmt.Errorf("failed to analyze health: %w", err)
	}

	var raw rawAnalysis
	if err := json.Unmarshal(repaired, &raw); err != nil {
		log.Printf("Health analysis parse failed, raw response snippet: %.200s", content)
		return nil, fmt.Errorf("failed to analyze health: %w", err)
	}

	score := float64(defaultScore)
	if raw.Score != nil {
		score = *raw.Score
	}
	score = clampScore(score)

	healthyPoints := make([]string, 0, len(raw.HealthyAspects))
	for _, asp := range raw.HealthyAspects {
		healthyPoints = append(healthyPoints, asp.Title+": "+asp.Description)
	}
	watchPoints := make([]string, 0, len(raw.WatchPoints))
	for _, wp := range raw.WatchPoints {
		watchPoints = append(watchPoints, wp.Ingredient+": "+wp.Concern)
	}

	return &recipe.HealthRecord{
		Score:         score,
		Breakdown:     formatBreakdown(&raw, score),
		HealthyPoints: healthyPoints,
		WatchPoints:   watchPoints,
	}, nil
}

func clampScore(score float64) float64 {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
