package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mealcrafter/internal/export"
)

var (
	flagFormat    string
	flagOutputDir string
)

var exportCmd = &cobra.Command{
	Use:   "export <recipe-id>",
	Short: "Export a saved recipe as markdown, JSON, or PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&flagFormat, "format", "markdown", "Output format: markdown, json, or pdf")
	exportCmd.Flags().StringVar(&flagOutputDir, "output-dir", ".", "Directory to write the exported file to")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.repo.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("recipe %s not found", args[0])
	}

	var data []byte
	var ext string
	switch flagFormat {
	case "markdown", "md":
		data = []byte(export.Markdown(*rec))
		ext = ".md"
	case "json":
		data, err = export.JSON(*rec)
		ext = ".json"
	case "pdf":
		data, err = export.PDF(*rec)
		ext = ".pdf"
	default:
		return fmt.Errorf("unknown format %q (use markdown, json, or pdf)", flagFormat)
	}
	if err != nil {
		return err
	}

	path := filepath.Join(flagOutputDir, rec.ID+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
