package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard/pkg/core"
)

var (
	columnsJSON bool
	columnColor string
	renameColor string
)

var columnsCmd = &cobra.Command{
	Use:     "columns",
	Aliases: []string{"col"},
	Short:   "Manage board columns",
}

var columnsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List columns in board order",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		board := openBoard(context.Background(), cmd)
		columns := board.Columns()

		if columnsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(columns); err != nil {
				fatal("Failed to encode columns", err)
			}
			return
		}

		if len(columns) == 0 {
			fmt.Println("No columns.")
			return
		}
		for i, c := range columns {
			fmt.Printf("%d. %s  %s  %s  (%d notes)\n", i+1, c.ID, c.Color, c.Title, len(board.NotesInColumn(c.ID)))
		}
	},
}

var columnsAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a column at the end of the board",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		column, err := openBoard(ctx, cmd).CreateColumn(ctx, args[0], columnColor).Unwrap()
		if err != nil {
			fatal("Failed to create column", err)
		}
		fmt.Printf("Created column %s (%s)\n", column.Title, column.ID)
	},
}

var columnsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a column, optionally changing its color",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		patch := core.ColumnPatch{Title: &args[1]}
		if cmd.Flags().Changed("color") {
			patch.Color = &renameColor
		}

		column, err := openBoard(ctx, cmd).UpdateColumn(ctx, core.ColumnID(args[0]), patch).Unwrap()
		if err != nil {
			fatal("Failed to update column", err)
		}
		fmt.Printf("Updated column %s (%s)\n", column.Title, column.ID)
	},
}

var columnsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a column and every note in it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		removed, err := openBoard(ctx, cmd).DeleteColumn(ctx, core.ColumnID(args[0])).Unwrap()
		if err != nil {
			fatal("Failed to delete column", err)
		}
		fmt.Printf("Deleted column %s and %d notes\n", args[0], removed)
	},
}

var columnsReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Set the column order; every column id must be listed once",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ids := make([]core.ColumnID, len(args))
		for i, a := range args {
			ids[i] = core.ColumnID(a)
		}

		columns, err := openBoard(ctx, cmd).ReorderColumns(ctx, ids).Unwrap()
		if err != nil {
			fatal("Failed to reorder columns", err)
		}
		for i, c := range columns {
			fmt.Printf("%d. %s\n", i+1, c.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.AddCommand(columnsListCmd, columnsAddCmd, columnsRenameCmd, columnsDeleteCmd, columnsReorderCmd)

	columnsListCmd.Flags().BoolVar(&columnsJSON, "json", false, "Output in JSON format")
	columnsAddCmd.Flags().StringVar(&columnColor, "color", core.DefaultColumnColor, "Column color (#RGB or #RRGGBB)")
	columnsRenameCmd.Flags().StringVar(&renameColor, "color", "", "New column color")
}
