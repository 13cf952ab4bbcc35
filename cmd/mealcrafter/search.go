package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find saved recipes similar to a free-text query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.index.Query(ctx, strings.Join(args, " "), flagLimit)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, m := range matches {
			rec, err := a.repo.Get(ctx, m.RecipeID)
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			fmt.Printf("%.3f  %s  %s\n", m.Score, rec.ID, rec.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&flagLimit, "limit", 5, "Maximum number of results")
}
