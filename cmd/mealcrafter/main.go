// mealcrafter ingests recipes from text, URLs, videos, and images, and keeps
// a searchable local collection with nutrition and health analysis.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; the environment may carry the config directly.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
