package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard"
	"github.com/aretw0/noteboard/pkg/adapters/fs"
	"github.com/aretw0/noteboard/pkg/git"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the latest board changes recorded in git",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		uri, opts, err := target(cmd)
		if err != nil {
			fatal("Failed to resolve board", err)
		}
		remote, err := noteboard.Init(context.Background(), uri, append(opts, noteboard.WithReadOnly(true))...)
		if err != nil {
			fatal("Failed to open board", err)
		}
		backend, ok := remote.(*fs.Backend)
		if !ok {
			fatal("Failed to read history", fmt.Errorf("history requires the fs adapter"))
		}

		client := git.NewClient(backend.Path, "", slog.Default())
		if !client.IsRepo() {
			fatal("Failed to read history", fmt.Errorf("%s is not versioned", backend.Path))
		}
		entries, err := client.Log(historyLimit)
		if err != nil {
			fatal("Failed to read history", err)
		}
		for _, e := range entries {
			fmt.Println(e)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
}
