package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard/pkg/core"
)

var (
	notesJSON   bool
	notesColumn string

	noteContent string
	noteColor   string

	editTitle   string
	editContent string
	editColor   string
	editColumn  string
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible notes grouped by column",
	Long: `List the notes the board would render: grouped by column in board order,
filtered by --search and, unless --archived is given, without archived notes.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		board := openBoard(context.Background(), cmd)

		columns := board.Columns()
		if notesColumn != "" {
			column, ok := board.Store().Column(core.ColumnID(notesColumn))
			if !ok {
				fatal("Failed to list notes", core.NotFound(core.KindColumn, notesColumn))
			}
			columns = []core.Column{column}
		}

		if notesJSON {
			grouped := make(map[core.ColumnID][]core.Note, len(columns))
			for _, c := range columns {
				grouped[c.ID] = board.NotesInColumn(c.ID)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(grouped); err != nil {
				fatal("Failed to encode notes", err)
			}
			return
		}

		for _, c := range columns {
			notes := board.NotesInColumn(c.ID)
			fmt.Printf("## %s (%d)\n", c.Title, len(notes))
			for i, n := range notes {
				archived := ""
				if n.IsArchived {
					archived = " [archived]"
				}
				fmt.Printf("  %d. %s  %s%s\n", i, n.ID, n.Title, archived)
			}
		}
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add <column-id> <title>",
	Short: "Create a note at the end of a column",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		note, err := openBoard(ctx, cmd).CreateNote(ctx, core.NoteDraft{
			Title:   args[1],
			Content: noteContent,
			Column:  core.ColumnID(args[0]),
			Color:   noteColor,
		}).Unwrap()
		if err != nil {
			fatal("Failed to create note", err)
		}
		fmt.Printf("Created note %s (%s)\n", note.Title, note.ID)
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update the title, content, color or column of a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		flags := cmd.Flags()

		var patch core.NotePatch
		if flags.Changed("title") {
			patch.Title = &editTitle
		}
		if flags.Changed("content") {
			patch.Content = &editContent
		}
		if flags.Changed("color") {
			patch.Color = &editColor
		}
		if flags.Changed("column") {
			column := core.ColumnID(editColumn)
			patch.Column = &column
		}

		note, err := openBoard(ctx, cmd).UpdateNote(ctx, core.NoteID(args[0]), patch).Unwrap()
		if err != nil {
			fatal("Failed to update note", err)
		}
		fmt.Printf("Updated note %s (%s)\n", note.Title, note.ID)
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id, err := openBoard(ctx, cmd).DeleteNote(ctx, core.NoteID(args[0])).Unwrap()
		if err != nil {
			fatal("Failed to delete note", err)
		}
		fmt.Println("Deleted note", id)
	},
}

var notesArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Toggle the archived flag of a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		note, err := openBoard(ctx, cmd).ArchiveNote(ctx, core.NoteID(args[0])).Unwrap()
		if err != nil {
			fatal("Failed to archive note", err)
		}
		if note.IsArchived {
			fmt.Println("Archived note", note.ID)
		} else {
			fmt.Println("Restored note", note.ID)
		}
	},
}

var notesMoveCmd = &cobra.Command{
	Use:   "move <id> <column-id> <index>",
	Short: "Move a note to a position within a column",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		index, err := strconv.Atoi(args[2])
		if err != nil {
			fatal("Invalid index", err)
		}

		move, err := openBoard(ctx, cmd).MoveNote(ctx, core.MoveIntent{
			NoteID:         core.NoteID(args[0]),
			TargetColumnID: core.ColumnID(args[1]),
			TargetIndex:    index,
		}).Unwrap()
		if err != nil {
			fatal("Failed to move note", err)
		}
		printMove(move)
	},
}

func printMove(move core.Move) {
	if !move.Applied {
		fmt.Println("Nothing to move.")
		return
	}
	fmt.Printf("Moved note %s to column %s at index %d\n",
		move.Intent.NoteID, move.Intent.TargetColumnID, move.Intent.TargetIndex)
	if !move.Reconciled {
		fmt.Fprintln(os.Stderr, "warning: sibling order could not be refreshed")
	}
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesListCmd, notesAddCmd, notesEditCmd, notesDeleteCmd, notesArchiveCmd, notesMoveCmd)

	notesListCmd.Flags().BoolVar(&notesJSON, "json", false, "Output in JSON format")
	notesListCmd.Flags().StringVar(&notesColumn, "column", "", "Only list this column")

	notesAddCmd.Flags().StringVar(&noteContent, "content", "", "Note content")
	notesAddCmd.Flags().StringVar(&noteColor, "color", core.DefaultNoteColor, "Note color (#RGB or #RRGGBB)")

	notesEditCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	notesEditCmd.Flags().StringVar(&editContent, "content", "", "New content")
	notesEditCmd.Flags().StringVar(&editColor, "color", "", "New color")
	notesEditCmd.Flags().StringVar(&editColumn, "column", "", "Move to the end of this column")
}
