package health

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealcrafter/internal/llm"
	"mealcrafter/internal/recipe"
)

type mockTextGenerator struct {
	response string
	lastReq  llm.Request
}

func (m *mockTextGenerator) GenerateContent(_ context.Context, req llm.Request) (llm.ContentResponse, error) {
	m.lastReq = req
	return llm.ContentResponse{Content: m.response, Usage: llm.TokenUsage{Model: "mock"}}, nil
}

func strPtr(s string) *string { return &s }

func sampleParsed() *recipe.ParsedRecipe {
	return &recipe.ParsedRecipe{
		Title: "Bhindi Masala",
		Ingredients: []recipe.Ingredient{
			{Name: "bhindi (okra)", Quantity: strPtr("2"), Unit: strPtr("lbs")},
			{Name: "oil", Quantity: strPtr("3"), Unit: strPtr("tbsp")},
		},
		Instructions: []string{"Heat the oil.", "Cook the okra until crisp."},
		Servings:     4,
	}
}

func sampleNutrition() *recipe.NutritionRecord {
	return &recipe.NutritionRecord{
		PerServing: recipe.NutrientTotals{Calories: 128.1, Protein: 2.5, Carbs: 8.8, Fat: 10.6, Fiber: 3.3, Sodium: 245},
		Servings:   4,
	}
}

const fullResponse = `{
	"score": 7.5,
	"summary": "A vegetable-forward dish with moderate oil.",
	"healthy_aspects": [
		{"title": "Bhindi (Okra)", "description": "High in fiber and vitamin C."}
	],
	"watch_points": [
		{"ingredient": "Oil (3 tbsp)", "concern": "Adds roughly 360 calories."}
	],
	"nutritional_highlights": {
		"vitamins": ["Vitamin C: 38% DV", "Vitamin K: 45% DV", "Folate: 22% DV", "Vitamin A: 15% DV", "Vitamin E: 5% DV"],
		"minerals": ["Potassium: 12% DV", "Magnesium: 18% DV"],
		"macros": {
			"protein_quality": "Moderate plant protein.",
			"carb_quality": "Complex carbs, low glycemic.",
			"fat_quality": "Mostly monounsaturated."
		},
		"special_compounds": ["Quercetin from okra", "Curcumin from turmeric", "Capsaicin from chili", "Extra compound"]
	},
	"dietary_considerations": {
		"suitable_for": ["Vegan", "Gluten-Free"],
		"may_not_suit": ["Low-Fat Diets"],
		"modifications_for_conditions": {
			"diabetes": "Okra helps regulate blood sugar.",
			"heart_disease": "Use olive oil.",
			"weight_loss": "Reduce oil to 1 tbsp.",
			"high_cholesterol": "Soluble fiber lowers LDL.",
			"hypertension": "Watch added salt."
		}
	},
	"improvement_tips": ["Reduce oil to 1 tablespoon", "Add a side of whole grains"],
	"meal_pairing_suggestions": ["Pair with whole wheat roti", "Serve with dal"]
}`

func TestAnalyze(t *testing.T) {
	gen := &mockTextGenerator{response: fullResponse}
	a := NewAnalyzer(gen)

	res, err := a.Analyze(context.Background(), sampleParsed(), sampleNutrition())
	require.NoError(t, err)
	require.NotNil(t, res.Record)

	assert.Equal(t, 7.5, res.Record.Score)
	assert.Equal(t, []string{"Bhindi (Okra): High in fiber and vitamin C."}, res.Record.HealthyPoints)
	assert.Equal(t, []string{"Oil (3 tbsp): Adds roughly 360 calories."}, res.Record.WatchPoints)

	assert.Contains(t, gen.lastReq.UserPrompt, "- 2 lbs bhindi (okra)")
	assert.Contains(t, gen.lastReq.UserPrompt, "1. Heat the oil.")
	assert.Contains(t, gen.lastReq.UserPrompt, "Calories: 128.1")
}

func TestAnalyze_BreakdownLayout(t *testing.T) {
	a := NewAnalyzer(&mockTextGenerator{response: fullResponse})

	res, err := a.Analyze(context.Background(), sampleParsed(), sampleNutrition())
	require.NoError(t, err)
	breakdown := res.Record.Breakdown

	assert.True(t, strings.HasPrefix(breakdown, "**Health Score: 7.5/10**\n\n"))
	assert.Contains(t, breakdown, "**Overview**: A vegetable-forward dish")

	// Section order is fixed.
	sections := []string{
		"Nutritional Highlights",
		"What Makes It Healthy",
		"What to Watch Out For",
		"Dietary Considerations",
		"Tips to Make It Healthier",
		"Suggested Pairings",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(breakdown, section)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", section)
		assert.Greater(t, idx, last, "section %q out of order", section)
		last = idx
	}

	// Caps: 4 vitamins (fifth dropped), 3 compounds, 4 conditions.
	assert.NotContains(t, breakdown, "Vitamin E")
	assert.NotContains(t, breakdown, "Extra compound")
	assert.Contains(t, breakdown, "**Heart Disease**: Use olive oil.")
	assert.Contains(t, breakdown, "**High Cholesterol**: Soluble fiber lowers LDL.")
	assert.NotContains(t, breakdown, "Hypertension")

	assert.Contains(t, breakdown, "**Suitable for:** Vegan, Gluten-Free")
	assert.Contains(t, breakdown, "• Reduce oil to 1 tablespoon")
	assert.Contains(t, breakdown, "• Pair with whole wheat roti")
}

func TestAnalyze_ScoreClamped(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  float64
	}{
		{"above range", "15", 10},
		{"below range", "0.2", 1},
		{"negative", "-3", 1},
		{"in range", "6.5", 6.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(&mockTextGenerator{response: `{"score": ` + tt.score + `, "summary": "x"}`})
			res, err := a.Analyze(context.Background(), sampleParsed(), sampleNutrition())
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Record.Score)
		})
	}
}

func TestAnalyze_MissingScoreDefaults(t *testing.T) {
	a := NewAnalyzer(&mockTextGenerator{response: `{"summary": "fine"}`})
	res, err := a.Analyze(context.Background(), sampleParsed(), sampleNutrition())
	require.NoError(t, err)
	assert.Equal(t, float64(defaultScore), res.Record.Score)
}

func TestAnalyze_NilGenerator(t *testing.T) {
	a := NewAnalyzer(nil)
	_, err := a.Analyze(context.Background(), sampleParsed(), sampleNutrition())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured model backend")
}

func TestItemText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		keys []string
		want string
	}{
		{"plain string", `"Use less oil"`, []string{"tip"}, "Use less oil"},
		{"object with known key", `{"tip": "Add greens"}`, []string{"tip", "description"}, "Add greens"},
		{"object with fallback key", `{"advice": "Cut the sugar"}`, []string{"tip"}, "Cut the sugar"},
		{"dict-shaped string", `"{'tip': 'Swap in olive oil'}"`, []string{"tip"}, "Swap in olive oil"},
		{"dict-shaped string unknown key", `"{'note': 'Less salt'}"`, []string{"tip"}, "Less salt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, itemText(json.RawMessage(tt.raw), tt.keys...))
		})
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Heart Disease", titleCase("heart_disease"))
	assert.Equal(t, "Diabetes", titleCase("diabetes"))
	assert.Equal(t, "Weight Loss", titleCase("weight loss"))
}
