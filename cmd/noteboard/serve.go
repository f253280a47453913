package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/noteboard"
	"github.com/aretw0/noteboard/pkg/adapters/httpapi"
	"github.com/aretw0/noteboard/pkg/adapters/metrics"
)

var (
	serveAddr      string
	serveAuthToken string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board over the REST API",
	Long: `Expose the board under /api with the column and note endpoints, plus /health
and Prometheus metrics on /metrics. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		uri, opts, err := target(cmd)
		if err != nil {
			fatal("Failed to resolve board", err)
		}
		remote, err := noteboard.Init(ctx, uri, opts...)
		if err != nil {
			fatal("Failed to open board", err)
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		server := httpapi.New(remote,
			httpapi.WithLogger(slog.Default()),
			httpapi.WithToken(serveAuthToken),
			httpapi.WithMetrics(metrics.New(reg), reg),
		)
		if err := server.Run(ctx, serveAddr); err != nil {
			fatal("Server failed", err)
		}
		slog.Info("server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "Listen address")
	serveCmd.Flags().StringVar(&serveAuthToken, "auth-token", "", "Require this bearer token on /api requests")
}
