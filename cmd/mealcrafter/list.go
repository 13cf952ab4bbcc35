package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved recipes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.repo.List(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No recipes saved yet.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %-40s  %.0f kcal/serving  health %.1f/10\n",
				rec.ID, rec.Title, rec.Nutrition.PerServing.Calories, rec.Health.Score)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
