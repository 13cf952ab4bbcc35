package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealcrafter/internal/llm"
)

type mockTextGenerator struct {
	response string
	err      error
	lastReq  llm.Request
}

func (m *mockTextGenerator) GenerateContent(_ context.Context, req llm.Request) (llm.ContentResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.response,
		Usage:   llm.TokenUsage{Model: "mock", PromptTokens: 100, CompletionTokens: 50},
	}, nil
}

const mockResponse = `{
	"title": "Bhindi Masala",
	"ingredients": [
		{"name": "bhindi (okra)", "quantity": "2", "unit": "lbs"},
		{"name": "oil", "quantity": "3", "unit": "tbsp", "notes": "use mustard oil"},
		{"name": "salt", "quantity": "as needed", "unit": null}
	],
	"instructions": [
		"Heat the oil in a wide pan over medium-high heat.",
		"Add the okra and cook uncovered until crisp."
	],
	"servings": 4,
	"cuisine_type": "Indian",
	"dietary_tags": ["Vegan", "Gluten-Free"]
}`

func TestAIParser_Parse(t *testing.T) {
	gen := &mockTextGenerator{response: mockResponse}
	p := NewAIParser(gen)

	res, err := p.Parse(context.Background(), "some recipe text", Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Recipe)

	assert.Equal(t, "Bhindi Masala", res.Recipe.Title)
	assert.Len(t, res.Recipe.Ingredients, 3)
	assert.Len(t, res.Recipe.Instructions, 2)
	assert.Equal(t, 4, res.Recipe.Servings)
	require.NotNil(t, res.Recipe.CuisineType)
	assert.Equal(t, "Indian", *res.Recipe.CuisineType)
	assert.Equal(t, []string{"Vegan", "Gluten-Free"}, res.Recipe.DietaryTags)
	assert.Equal(t, "mock", res.Usage.Model)
	assert.Equal(t, 100, res.Usage.PromptTokens)
}

// Extraneous keys the model invents must not survive coercion, and the
// forbidden "as needed" quantity is substituted.
func TestAIParser_IngredientCoercion(t *testing.T) {
	gen := &mockTextGenerator{response: mockResponse}
	p := NewAIParser(gen)

	res, err := p.Parse(context.Background(), "some recipe text", Options{})
	require.NoError(t, err)

	oil := res.Recipe.Ingredients[1]
	assert.Equal(t, "oil", oil.Name)
	require.NotNil(t, oil.Quantity)
	assert.Equal(t, "3", *oil.Quantity)

	salt := res.Recipe.Ingredients[2]
	require.NotNil(t, salt.Quantity)
	assert.Equal(t, "to taste", *salt.Quantity)
	assert.Nil(t, salt.Unit)
}

func TestAIParser_NumericQuantity(t *testing.T) {
	gen := &mockTextGenerator{response: `{
		"title": "Rice",
		"ingredients": [{"name": "rice", "quantity": 2, "unit": "cups"}],
		"instructions": ["Rinse and boil the rice."],
		"servings": 2
	}`}
	p := NewAIParser(gen)

	res, err := p.Parse(context.Background(), "rice", Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Recipe.Ingredients[0].Quantity)
	assert.Equal(t, "2", *res.Recipe.Ingredients[0].Quantity)
}

func TestAIParser_FencedResponse(t *testing.T) {
	gen := &mockTextGenerator{response: "```json\n" + mockResponse + "\n```"}
	p := NewAIParser(gen)

	res, err := p.Parse(context.Background(), "some recipe text", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Bhindi Masala", res.Recipe.Title)
}

func TestAIParser_EmptySectionsFail(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no ingredients", `{"title": "X", "ingredients": [], "instructions": ["Cook it."], "servings": 2}`},
		{"no instructions", `{"title": "X", "ingredients": [{"name": "rice"}], "instructions": [], "servings": 2}`},
		{"blank ingredient names", `{"title": "X", "ingredients": [{"name": "  "}], "instructions": ["Cook it."], "servings": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewAIParser(&mockTextGenerator{response: tt.response})
			_, err := p.Parse(context.Background(), "text", Options{})
			assert.Error(t, err)
		})
	}
}

func TestAIParser_Defaults(t *testing.T) {
	gen := &mockTextGenerator{response: `{
		"ingredients": [{"name": "beans"}],
		"instructions": ["Simmer the beans until tender."]
	}`}
	p := NewAIParser(gen)

	res, err := p.Parse(context.Background(), "beans", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Untitled Recipe", res.Recipe.Title)
	assert.Equal(t, 4, res.Recipe.Servings)
}

func TestAIParser_NilGenerator(t *testing.T) {
	p := NewAIParser(nil)
	_, err := p.Parse(context.Background(), "text", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured model backend")
}

// The prompt protocol, not local post-processing, owns duplicate merging and
// quantity substitution. Assert the contract is stated in the prompt.
func TestAIParser_PromptContract(t *testing.T) {
	gen := &mockTextGenerator{response: mockResponse}
	p := NewAIParser(gen)

	_, err := p.Parse(context.Background(), "text", Options{})
	require.NoError(t, err)
	assert.Contains(t, gen.lastReq.UserPrompt, "Combine duplicate ingredients")
	assert.Contains(t, gen.lastReq.UserPrompt, `Never use "as needed"`)
	assert.NotContains(t, gen.lastReq.UserPrompt, "OCR")
	assert.InDelta(t, 0.3, gen.lastReq.Temperature, 0.001)
}

func TestAIParser_PromptSelection(t *testing.T) {
	gen := &mockTextGenerator{response: mockResponse}
	p := NewAIParser(gen)

	_, err := p.Parse(context.Background(), "text", Options{PreserveOriginal: true, IsOCRText: true})
	require.NoError(t, err)
	assert.Contains(t, gen.lastReq.UserPrompt, "WITHOUT rewording")
	assert.Contains(t, gen.lastReq.UserPrompt, "extracted from an image with OCR")
}
