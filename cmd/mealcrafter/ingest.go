package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mealcrafter/internal/ingest"
)

var (
	flagImage       string
	flagTitle       string
	flagCuisine     string
	flagDietaryTags []string
	flagPreserve    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [text or URL]",
	Short: "Ingest a recipe from text, a URL, a video URL, or an image",
	Long: `Ingest normalizes a recipe source into the canonical schema, calculates
nutrition, scores it for health, and saves the result.

Examples:
  mealcrafter ingest "https://example.com/best-dal"
  mealcrafter ingest "https://www.youtube.com/watch?v=abc123def45"
  mealcrafter ingest --image recipe-card.jpg --preserve-original
  mealcrafter ingest "Ingredients: 2 eggs ..." --title "Quick Omelette"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&flagImage, "image", "", "Path to a recipe photo to ingest via OCR")
	ingestCmd.Flags().StringVar(&flagTitle, "title", "", "Title override")
	ingestCmd.Flags().StringVar(&flagCuisine, "cuisine", "", "Cuisine type override")
	ingestCmd.Flags().StringSliceVar(&flagDietaryTags, "dietary-tags", nil, "Dietary tag overrides")
	ingestCmd.Flags().BoolVar(&flagPreserve, "preserve-original", false, "Keep instruction wording exactly as written")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if flagImage == "" && len(args) == 0 {
		return fmt.Errorf("provide recipe text, a URL, or --image")
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := ingest.Options{
		Title:            flagTitle,
		CuisineType:      flagCuisine,
		DietaryTags:      flagDietaryTags,
		PreserveOriginal: flagPreserve,
	}

	var res *ingest.Result
	if flagImage != "" {
		data, err := os.ReadFile(flagImage)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		res, err = a.ingest.IngestImage(ctx, data, opts)
		if err != nil {
			return err
		}
	} else {
		res, err = a.ingest.Ingest(ctx, args[0], opts)
		if err != nil {
			return err
		}
	}

	if err := a.repo.Save(ctx, res.Record); err != nil {
		return err
	}
	if err := a.index.Add(ctx, res.Record); err != nil {
		// The record is saved; a missing embedding backend only disables
		// similarity search.
		fmt.Fprintf(os.Stderr, "warning: recipe not indexed: %v\n", err)
	}

	rec := res.Record
	fmt.Printf("Saved %q (%s)\n", rec.Title, rec.ID)
	fmt.Printf("  source: %s", res.Source)
	if res.UsedFallback {
		fmt.Printf(" (deterministic parse)")
	}
	fmt.Println()
	fmt.Printf("  ingredients: %d, steps: %d, servings: %d\n",
		len(rec.Parsed.Ingredients), len(rec.Parsed.Instructions), rec.Parsed.Servings)
	fmt.Printf("  calories/serving: %.1f, health score: %.1f/10\n",
		rec.Nutrition.PerServing.Calories, rec.Health.Score)
	if rec.Parsed.CuisineType != nil {
		fmt.Printf("  cuisine: %s\n", *rec.Parsed.CuisineType)
	}
	if len(rec.Parsed.DietaryTags) > 0 {
		fmt.Printf("  dietary: %s\n", strings.Join(rec.Parsed.DietaryTags, ", "))
	}
	if rec.ImageURL != "" {
		fmt.Printf("  image: %s\n", rec.ImageURL)
	}
	return nil
}
