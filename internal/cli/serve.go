//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
	"github.com/pgEdge/pgedge-basketinsights/internal/metrics"
	"github.com/pgEdge/pgedge-basketinsights/internal/server"
)

var (
	serveListen      string
	serveReadTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compute results once and serve them over HTTP",
	Long: `Load the order history, compute every result set once, and serve the
results as read-only JSON until interrupted with Ctrl+C.

Endpoints:
  /healthz                      - readiness and current run id
  /benchmarks                   - global benchmarks
  /products/{measure}           - per-product metrics (repurchase_cycle, order_size)
  /departments/{measure}        - per-department metrics
  /products/{id}/copurchase     - assembled co-purchase rows for one anchor
  /copurchase                   - all co-purchase rows
  /export                       - the full results document
  /metrics                      - Prometheus metrics

Example:
  pgedge-basketinsights serve --connection "postgres://..." --listen :8080`,
	RunE: runServe,
}

func init() {
	addAnalysisFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"address to listen on (default: :8080)")
	serveCmd.Flags().IntVar(&serveReadTimeout, "read-timeout", 0,
		"request read timeout in seconds")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	applyAnalysisFlags(cmd)
	if serveListen != "" {
		cfg.Serve.Listen = serveListen
	}
	if serveReadTimeout > 0 {
		cfg.Serve.ReadTimeout = serveReadTimeout
	}

	// Validate configuration
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	m.RegisterRuntime()

	st, err := openStore(ctx, cfg)
	if err != nil {
		m.RecordFailure()
		return err
	}
	comp, err := compute(ctx, cfg, st, m)
	st.Close()
	if err != nil {
		return err
	}

	srv := server.New(m)
	srv.SetResults(comp.results, comp.meta)

	logging.Info().
		Str("listen", cfg.Serve.Listen).
		Str("run_id", comp.meta.RunID).
		Msg("Serving results")

	if err := srv.ListenAndServe(ctx, cfg.Serve.Listen,
		time.Duration(cfg.Serve.ReadTimeout)*time.Second); err != nil {
		return err
	}

	logging.Info().Msg("Server stopped")
	return nil
}
