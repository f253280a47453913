package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard"
	"github.com/aretw0/noteboard/internal/platform"
)

var (
	verbose      bool
	adapter      string
	boardDir     string
	apiURL       string
	token        string
	searchQuery  string
	showArchived bool
	noGit        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "noteboard",
	Short: "A Kanban note board backed by a YAML file, git, or a REST API",
	Long: `Noteboard keeps columns and notes in an authoritative store and applies
every change through it. Boards live in a local board.yaml (optionally
versioned with git) or behind the board REST API served by 'noteboard serve'.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&adapter, "adapter", "", "Remote adapter: fs or rest (default from noteboard.yaml, else fs)")
	flags.StringVarP(&boardDir, "dir", "d", "", "Board directory for the fs adapter")
	flags.StringVar(&apiURL, "url", "", "API base URL for the rest adapter, e.g. http://localhost:8000/api")
	flags.StringVar(&token, "token", "", "Bearer token (default $"+platform.TokenEnv+")")
	flags.StringVarP(&searchQuery, "search", "s", "", "Only show notes whose title or content contains this text")
	flags.BoolVar(&showArchived, "archived", false, "Include archived notes")
	flags.BoolVar(&noGit, "no-git", false, "Disable git versioning for the fs adapter")
}

// target resolves the adapter, the uri and the factory options from
// noteboard.yaml, the environment and the command line, in that order.
func target(cmd *cobra.Command) (string, []noteboard.Option, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	root, err := platform.FindRoot(cwd)
	if err != nil {
		root = cwd
	}
	cfg, err := platform.LoadConfig(root)
	if err != nil {
		return "", nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("adapter") {
		cfg.Adapter = adapter
	}
	if flags.Changed("dir") {
		cfg.Dir = boardDir
	}
	if flags.Changed("url") {
		cfg.URL = apiURL
	}
	if flags.Changed("token") {
		cfg.Token = token
	}
	if noGit {
		disabled := false
		cfg.Versioning = &disabled
	}
	if cfg.Adapter == "" && cfg.URL != "" && !flags.Changed("dir") {
		cfg.Adapter = noteboard.AdapterREST
	}
	if cfg.Adapter != noteboard.AdapterREST && cfg.Dir == "" {
		cfg.Dir = root
	}

	opts := append(cfg.Options(), noteboard.WithLogger(slog.Default()))
	return cfg.URI(), opts, nil
}

// openBoard opens and loads the board selected by the flags, with the view
// filters applied.
func openBoard(ctx context.Context, cmd *cobra.Command, extra ...noteboard.Option) *noteboard.Board {
	uri, opts, err := target(cmd)
	if err != nil {
		fatal("Failed to resolve board", err)
	}

	board, err := noteboard.Open(ctx, uri, append(opts, extra...)...)
	if err != nil {
		fatal("Failed to open board", err)
	}
	board.SetSearchQuery(searchQuery)
	board.SetShowArchived(showArchived)
	return board
}
