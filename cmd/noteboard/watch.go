package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard/pkg/adapters/fs"
	"github.com/aretw0/noteboard/pkg/adapters/lifecycle"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the board whenever its file changes outside this process",
	Long: `Watch the board file for changes made by other processes or editors, reload
the board after each one and print a summary. Requires the fs adapter.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		board := openBoard(ctx, cmd)
		events, err := board.Watch(ctx, watchPattern)
		if err != nil {
			fatal("Failed to start watcher", err)
		}

		src := lifecycle.NewSource(events)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start event source", err)
		}

		fmt.Printf("Watching %s (Ctrl+C to stop)\n", watchPattern)
		for e := range src.Events() {
			view := board.View()
			visible := len(view.Visible())
			fmt.Printf("%s -> %d columns, %d visible notes (version %d)\n",
				e.String(), len(board.Columns()), visible, view.Version())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", fs.DefaultWatchPattern, "Glob of files to watch, relative to the board directory")
}
