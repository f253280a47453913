package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard/pkg/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the board as JSON, YAML or Markdown",
	Long: `Export every column and note, archived notes included. Use --output - to
write to stdout; by default a dated file is created in the current directory.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		board := openBoard(context.Background(), cmd)
		now := time.Now()

		var w io.Writer = os.Stdout
		if exportOutput != "-" {
			name := exportOutput
			if name == "" {
				name = export.Filename(exportFormat, now)
			}
			f, err := os.Create(name)
			if err != nil {
				fatal("Failed to create export file", err)
			}
			defer f.Close()
			w = f
			defer fmt.Println("Exported board to", name)
		}

		store := board.Store()
		if err := export.Write(w, exportFormat, store.Columns(), store.Notes(), now); err != nil {
			fatal("Failed to export board", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatMarkdown, "Export format: json, yaml or md")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file, - for stdout")
}
