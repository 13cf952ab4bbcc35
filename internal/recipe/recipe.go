// Package recipe defines the canonical recipe schema that every ingestion
// source must converge to, plus the derived nutrition and health records.
package recipe

import "strings"

// Ingredient is a single entry in the canonical ingredient list.
//
// Quantity is a string, not a number: it may carry fractions ("1/2"),
// ranges ("2-3"), or qualitative amounts ("to taste"). The literal
// "as needed" is never allowed; a concrete amount is always substituted.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity *string `json:"quantity"`
	Unit     *string `json:"unit"`
}

// ParsedRecipe is the canonical schema all sources converge to.
// On a successful parse both Ingredients and Instructions are non-empty.
type ParsedRecipe struct {
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Servings     int          `json:"servings"`
	CuisineType  *string      `json:"cuisine_type"`
	DietaryTags  []string     `json:"dietary_tags"`
}

// DefaultServings is used when the source text carries no serving count.
const DefaultServings = 4

// NutrientTotals holds the numeric nutrition figures, rounded to one decimal.
type NutrientTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
}

// BreakdownLine is a per-ingredient nutrition line from the model.
type BreakdownLine struct {
	Ingredient string  `json:"ingredient"`
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	Fiber      float64 `json:"fiber"`
	Notes      string  `json:"notes,omitempty"`
}

// NutritionRecord is the output of the nutrition calculator.
type NutritionRecord struct {
	Total             NutrientTotals  `json:"total"`
	PerServing        NutrientTotals  `json:"per_serving"`
	Servings          int             `json:"servings"`
	DetailedBreakdown []BreakdownLine `json:"detailed_breakdown,omitempty"`
}

// HealthRecord is the output of the health analyzer. Score is always
// clamped into [1,10].
type HealthRecord struct {
	Score         float64  `json:"score"`
	Breakdown     string   `json:"breakdown"`
	HealthyPoints []string `json:"healthy_points"`
	WatchPoints   []string `json:"watch_points"`
}

// StructuredData holds fields lifted from embedded recipe markup on a page.
type StructuredData struct {
	Title        string         `json:"title"`
	Ingredients  []string       `json:"ingredients"`
	Instructions []string       `json:"instructions"`
	Servings     string         `json:"servings"`
	Nutrition    map[string]any `json:"nutrition"`
}

// ScrapedPage is the transient result of scraping a recipe URL.
// Text is the uniform text blob downstream parsing consumes; the structured
// fields are kept only for title precedence and diagnostics.
type ScrapedPage struct {
	Text           string          `json:"text"`
	ImageURL       string          `json:"image_url"`
	StructuredData *StructuredData `json:"structured_data"`
}

// Platform identifies the video platform a URL resolves to.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformVimeo     Platform = "vimeo"
	PlatformOther     Platform = "other"
)

// VideoExtraction is the transient result of extracting a video URL.
type VideoExtraction struct {
	Platform    Platform `json:"platform"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	URL         string   `json:"url"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    int      `json:"duration"`
	Description string   `json:"description"`
	Transcript  string   `json:"transcript,omitempty"`
	FullText    string   `json:"full_text"`
	RecipeText  string   `json:"recipe_text"`
}

// Record is the final entity handed to the persistence and indexing
// collaborators once the pipeline completes.
type Record struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	RawText   string          `json:"raw_text"`
	Parsed    ParsedRecipe    `json:"parsed"`
	Nutrition NutritionRecord `json:"nutrition"`
	Health    HealthRecord    `json:"health"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// IngredientNames returns the lowercase ingredient names, used when building
// the search-index document.
func (p ParsedRecipe) IngredientNames() []string {
	names := make([]string, 0, len(p.Ingredients))
	for _, ing := range p.Ingredients {
		names = append(names, strings.ToLower(ing.Name))
	}
	return names
}

// Document builds the text document indexed for retrieval: title, ingredient
// names, and instructions joined with spaces.
func (r Record) Document() string {
	parts := []string{r.Title}
	parts = append(parts, r.Parsed.IngredientNames()...)
	parts = append(parts, r.Parsed.Instructions...)
	return strings.Join(parts, " ")
}
