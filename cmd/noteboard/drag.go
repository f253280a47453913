package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard/pkg/core"
)

var dragCmd = &cobra.Command{
	Use:   "drag <active-note-id> <over-id>",
	Short: "Drop a note onto another note or a column, as a drag and drop gesture would",
	Long: `Resolve a drop the way the board UI does: over a note, the dragged note takes
that note's index in its column; over a column, it goes to the end of it.
Indexes are computed on the visible notes, so --search and --archived apply.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		board := openBoard(ctx, cmd)

		board.BeginDrag(core.NoteID(args[0]))
		move, err := board.DispatchDragEnd(ctx, args[0], args[1]).Unwrap()
		if err != nil {
			fatal("Failed to move note", err)
		}
		printMove(move)
	},
}

func init() {
	rootCmd.AddCommand(dragCmd)
}
