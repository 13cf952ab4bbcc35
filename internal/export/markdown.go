// Package export renders a finished recipe record as Markdown, JSON, or PDF.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"mealcrafter/internal/recipe"
)

// Markdown renders the canonical record as a Markdown document: the recipe
// fields first, then the health breakdown narrative, which is already
// Markdown.
func Markdown(rec recipe.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rec.Title)

	if rec.Parsed.CuisineType != nil && *rec.Parsed.CuisineType != "" {
		fmt.Fprintf(&b, "Cuisine: %s\n\n", *rec.Parsed.CuisineType)
	}
	if len(rec.Parsed.DietaryTags) > 0 {
		fmt.Fprintf(&b, "Dietary: %s\n\n", strings.Join(rec.Parsed.DietaryTags, ", "))
	}
	fmt.Fprintf(&b, "Servings: %d\n\n", rec.Parsed.Servings)

	b.WriteString("## Ingredients\n\n")
	for _, ing := range rec.Parsed.Ingredients {
		b.WriteString("- " + ingredientLine(ing) + "\n")
	}
	b.WriteString("\n## Instructions\n\n")
	for i, step := range rec.Parsed.Instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	b.WriteString("\n## Nutrition (per serving)\n\n")
	per := rec.Nutrition.PerServing
	fmt.Fprintf(&b, "- Calories: %s kcal\n", trimFloat(per.Calories))
	fmt.Fprintf(&b, "- Protein: %s g\n", trimFloat(per.Protein))
	fmt.Fprintf(&b, "- Carbs: %s g\n", trimFloat(per.Carbs))
	fmt.Fprintf(&b, "- Fat: %s g\n", trimFloat(per.Fat))
	fmt.Fprintf(&b, "- Fiber: %s g\n", trimFloat(per.Fiber))
	fmt.Fprintf(&b, "- Sugar: %s g\n", trimFloat(per.Sugar))
	fmt.Fprintf(&b, "- Sodium: %s mg\n", trimFloat(per.Sodium))

	if rec.Health.Breakdown != "" {
		b.WriteString("\n## Health Analysis\n\n")
		b.WriteString(strings.TrimSpace(rec.Health.Breakdown))
		b.WriteString("\n")
	}

	return b.String()
}

func ingredientLine(ing recipe.Ingredient) string {
	parts := make([]string, 0, 3)
	if ing.Quantity != nil && *ing.Quantity != "" {
		parts = append(parts, *ing.Quantity)
	}
	if ing.Unit != nil && *ing.Unit != "" {
		parts = append(parts, *ing.Unit)
	}
	parts = append(parts, ing.Name)
	return strings.Join(parts, " ")
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
