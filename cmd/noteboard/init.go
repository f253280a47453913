package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard"
	"github.com/aretw0/noteboard/pkg/adapters/fs"
)

var initFormat string

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a board (directory, board file and git repository)",
	Long: `Initialize a new board in the board directory (current directory by default).
Git versioning is enabled when git is installed, unless --no-git is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		uri, opts, err := target(cmd)
		if err != nil {
			fatal("Failed to resolve board", err)
		}
		opts = append(opts, noteboard.WithAutoInit(true), noteboard.WithFormat(initFormat))

		remote, err := noteboard.Init(context.Background(), uri, opts...)
		if err != nil {
			fatal("Failed to initialize board", err)
		}

		if backend, ok := remote.(*fs.Backend); ok {
			state := backend.State().(fs.BackendState)
			fmt.Printf("Initialized board %s in %s (versioning: %t)\n", state.File, state.Path, state.Versioning)
			return
		}
		fmt.Println("Connected to", uri)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "Board file format: yaml or json")
}
