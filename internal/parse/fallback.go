// Package parse turns an arbitrary recipe text blob into the canonical
// schema. The model-assisted parser (AIParser) is the primary path; the
// deterministic FallbackParser is the pure-heuristic floor used when the
// model path is unavailable or fails in preserve-original mode.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"mealcrafter/internal/recipe"
)

// FallbackParser segments recipe text into ingredients and instructions with
// no external model dependency. It also defines the minimum bar the model
// path must clear: both sections present, at least one ingredient.
type FallbackParser struct{}

// NewFallbackParser creates a FallbackParser.
func NewFallbackParser() *FallbackParser {
	return &FallbackParser{}
}

var (
	bulletGlyphRe   = regexp.MustCompile(`[-•*]`)
	quantityRe      = regexp.MustCompile(`^(\d+(?:\.\d+)?(?:/\d+)?(?:\s*-\s*\d+(?:\.\d+)?)?)\s*`)
	stepNumberRe    = regexp.MustCompile(`^\d+[.)]\s*`)
	stepPrefixRe    = regexp.MustCompile(`(?i)^Step\s+\d+:?\s*`)
	servingsRe      = regexp.MustCompile(`(?i)(?:serves?|servings?|yields?)[:\s]+(\d+)`)
	trailingNoteRe  = regexp.MustCompile(`,.*$`)
	digitRe         = regexp.MustCompile(`\d`)
	titleExclusions = []string{"ingredients", "instructions", "directions", "method"}
)

// unitPatterns is an ordered list: longer/more specific patterns first.
// The first match wins, so reordering changes behavior.
var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(cups?|c\.?)\b`),
	regexp.MustCompile(`(?i)\b(tablespoons?|tbsps?|T\.?)\b`),
	regexp.MustCompile(`(?i)\b(teaspoons?|tsps?|t\.?)\b`),
	regexp.MustCompile(`(?i)\b(ounces?|oz\.?)\b`),
	regexp.MustCompile(`(?i)\b(pounds?|lbs?\.?)\b`),
	regexp.MustCompile(`(?i)\b(grams?|g\.?)\b`),
	regexp.MustCompile(`(?i)\b(kilograms?|kg\.?)\b`),
	regexp.MustCompile(`(?i)\b(milliliters?|ml\.?)\b`),
	regexp.MustCompile(`(?i)\b(liters?|l\.?)\b`),
	regexp.MustCompile(`(?i)\b(pinch(?:es)?)\b`),
	regexp.MustCompile(`(?i)\b(dash(?:es)?)\b`),
	regexp.MustCompile(`(?i)\b(cloves?)\b`),
	regexp.MustCompile(`(?i)\b(pieces?)\b`),
	regexp.MustCompile(`(?i)\b(cans?)\b`),
	regexp.MustCompile(`(?i)\b(packages?|pkgs?\.?)\b`),
	regexp.MustCompile(`(?i)\b(bunches?)\b`),
	regexp.MustCompile(`(?i)\b(stalks?)\b`),
}

// measurementTokens mark a line as ingredient-shaped even without a digit.
var measurementTokens = []string{
	"cup", "tbsp", "tsp", "oz", "lb", "g", "kg", "ml", "l",
	"tablespoon", "teaspoon", "ounce", "pound", "gram", "kilogram",
	"milliliter", "liter", "pinch", "dash", "clove", "piece",
}

// instructionVerbs mark a line as instruction-shaped.
var instructionVerbs = []string{
	"heat", "cook", "bake", "fry", "boil", "simmer", "stir", "mix",
	"combine", "add", "pour", "place", "put", "season", "serve",
	"chop", "dice", "slice", "cut", "prepare", "preheat", "drain",
	"melt", "whisk", "blend", "fold", "knead", "roll", "spread",
}

// Parse segments the text into the canonical schema. It fails with a
// distinct, user-actionable error when either section cannot be located or
// when no usable ingredient lines are found.
func (p *FallbackParser) Parse(text string) (*recipe.ParsedRecipe, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	title := extractTitle(lines)
	ingredientLines, instructionLines := splitSections(lines)

	if len(ingredientLines) == 0 {
		return nil, fmt.Errorf("could not identify ingredients section: please ensure ingredients are clearly listed")
	}
	if len(instructionLines) == 0 {
		return nil, fmt.Errorf("could not identify instructions section: please ensure cooking steps are included")
	}

	ingredients := parseIngredients(ingredientLines)
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("no valid ingredients found: please check the format of your ingredients list")
	}

	return &recipe.ParsedRecipe{
		Title:        title,
		Ingredients:  ingredients,
		Instructions: parseInstructions(instructionLines),
		Servings:     extractServings(text),
	}, nil
}

// extractTitle returns the first line that is not a section header.
func extractTitle(lines []string) string {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		excluded := false
		for _, kw := range titleExclusions {
			if strings.Contains(lower, kw) {
				excluded = true
				break
			}
		}
		if !excluded {
			return line
		}
	}
	return "Untitled Recipe"
}

// splitSections locates the ingredient and instruction sections.
//
// Priority order, which must not change:
//  1. Header keywords ("ingredient", "you need" / "instruction",
//     "direction", "method", "step").
//  2. Missing ingredients header: scan forward from line 2 for the first
//     ingredient-shaped line.
//  3. Missing instructions header: scan backward from the end for the last
//     instruction-shaped line, then walk further back while the preceding
//     lines still look like ingredients.
func splitSections(lines []string) (ingredients, instructions []string) {
	ingredientsStart := -1
	instructionsStart := -1

	for i, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if containsAny(lower, "ingredient", "you need", "you'll need") {
			ingredientsStart = i + 1
		} else if containsAny(lower, "instruction", "direction", "method", "step") {
			instructionsStart = i + 1
			break
		}
	}

	if ingredientsStart == -1 {
		for i := 1; i < len(lines); i++ {
			if looksLikeIngredient(lines[i]) {
				ingredientsStart = i
				break
			}
		}
	}

	if instructionsStart == -1 {
		for i := len(lines) - 1; i > ingredientsStart; i-- {
			if looksLikeInstruction(lines[i]) {
				instructionsStart = i
				for instructionsStart > ingredientsStart && instructionsStart > 0 && looksLikeIngredient(lines[instructionsStart-1]) {
					instructionsStart--
				}
				break
			}
		}
	}

	if ingredientsStart != -1 {
		end := len(lines)
		if instructionsStart != -1 {
			end = instructionsStart
		}
		for _, line := range lines[ingredientsStart:end] {
			if strings.TrimSpace(line) != "" {
				ingredients = append(ingredients, line)
			}
		}
	}

	if instructionsStart != -1 {
		for _, line := range lines[instructionsStart:] {
			if strings.TrimSpace(line) != "" {
				instructions = append(instructions, line)
			}
		}
	}

	return ingredients, instructions
}

// looksLikeIngredient reports whether the line is ingredient-shaped: it
// contains a digit, a known unit token, or is short and unpunctuated.
func looksLikeIngredient(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if digitRe.MatchString(line) {
		return true
	}
	lower := strings.ToLower(line)
	for _, unit := range measurementTokens {
		if strings.Contains(lower, unit) {
			return true
		}
	}
	return len(strings.Fields(line)) <= 5 && !strings.HasSuffix(line, ".")
}

// looksLikeInstruction reports whether the line contains a cooking verb or
// ends in a period.
func looksLikeInstruction(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	lower := strings.ToLower(line)
	for _, verb := range instructionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return strings.HasSuffix(line, ".")
}

func parseIngredients(lines []string) []recipe.Ingredient {
	var ingredients []recipe.Ingredient
	for _, line := range lines {
		if ing, ok := parseSingleIngredient(line); ok {
			ingredients = append(ingredients, ing)
		}
	}
	return ingredients
}

// parseSingleIngredient strips bullet glyphs, extracts a leading quantity
// token (integer, decimal, fraction, or range), matches a unit from the
// ordered pattern list, and treats the remainder up to the first comma as
// the name.
func parseSingleIngredient(line string) (recipe.Ingredient, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return recipe.Ingredient{}, false
	}

	line = strings.TrimSpace(bulletGlyphRe.ReplaceAllString(line, ""))

	var quantity *string
	if m := quantityRe.FindStringSubmatch(line); m != nil {
		q := m[1]
		quantity = &q
		line = line[len(m[0]):]
	}

	var unit *string
	for _, pattern := range unitPatterns {
		if loc := pattern.FindStringSubmatchIndex(line); loc != nil {
			u := line[loc[2]:loc[3]]
			unit = &u
			line = line[:loc[0]] + line[loc[1]:]
			break
		}
	}

	name := strings.TrimSpace(trailingNoteRe.ReplaceAllString(strings.TrimSpace(line), ""))
	if name == "" {
		return recipe.Ingredient{}, false
	}

	return recipe.Ingredient{Name: name, Quantity: quantity, Unit: unit}, true
}

// parseInstructions strips step numbering and joins continuation lines: a
// line without a terminating period that also fails the instruction-verb
// heuristic is merged into the following line.
func parseInstructions(lines []string) []string {
	var instructions []string
	current := ""

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = stepNumberRe.ReplaceAllString(line, "")
		line = stepPrefixRe.ReplaceAllString(line, "")

		if strings.HasSuffix(line, ".") || looksLikeInstruction(line) {
			if current != "" {
				instructions = append(instructions, strings.TrimSpace(current+" "+line))
				current = ""
			} else {
				instructions = append(instructions, line)
			}
		} else {
			if current != "" {
				current += " " + line
			} else {
				current = line
			}
		}
	}

	if current != "" {
		instructions = append(instructions, strings.TrimSpace(current))
	}

	if len(instructions) == 0 {
		return []string{"Follow standard cooking procedures for the listed ingredients."}
	}
	return instructions
}

// extractServings finds a "serves/servings/yields: N" marker anywhere in the
// text, defaulting to 4.
func extractServings(text string) int {
	if m := servingsRe.FindStringSubmatch(text); m != nil {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		if n > 0 {
			return n
		}
	}
	return recipe.DefaultServings
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
