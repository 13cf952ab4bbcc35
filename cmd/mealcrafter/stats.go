package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show model token usage per pipeline stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		usage, err := a.metrics.UsageByStage(ctx, flagDays)
		if err != nil {
			return err
		}
		if len(usage) == 0 {
			fmt.Printf("No model calls recorded in the last %d days.\n", flagDays)
			return nil
		}
		fmt.Printf("%-12s %8s %12s %12s\n", "stage", "calls", "prompt", "completion")
		for _, u := range usage {
			fmt.Printf("%-12s %8d %12d %12d\n", u.Stage, u.Calls, u.TotalPrompt, u.TotalCompletion)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&flagDays, "days", 30, "How many days back to report")
}
