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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/config"
	"github.com/pgEdge/pgedge-basketinsights/internal/export"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
	"github.com/pgEdge/pgedge-basketinsights/internal/metrics"
	"github.com/pgEdge/pgedge-basketinsights/internal/store"
)

var (
	runMinSample   int
	runPrecision   int
	runWorkers     int
	runExportDir   string
	runFormats     []string
	runWriteTables bool
	runMetricsFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute all result sets and write them out",
	Long: `Load the order history, compute the repurchase-cycle, order-size and
co-purchase result sets, and write them as CSV and JSON files. With
--write-tables the result tables in the source database are replaced
in a single transaction.

Example:
  pgedge-basketinsights run --connection "postgres://..." --export-dir out
  pgedge-basketinsights run --source sqlite --sqlite-path basket.db --format json
  pgedge-basketinsights run --write-tables --metrics-file /var/lib/node_exporter/basket.prom`,
	RunE: runRun,
}

func init() {
	addAnalysisFlags(runCmd)
	runCmd.Flags().StringVar(&runExportDir, "export-dir", "",
		"directory for exported files")
	runCmd.Flags().StringSliceVar(&runFormats, "format", nil,
		"export formats: csv, json (repeatable)")
	runCmd.Flags().BoolVar(&runWriteTables, "write-tables", false,
		"replace the result tables in the source database")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "",
		"write run metrics in Prometheus text format to this file")
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&runMinSample, "min-sample", 0,
		"minimum observations for a group or product pair (default: 30)")
	cmd.Flags().IntVar(&runPrecision, "precision", 0,
		"decimals in presented results (default: 2)")
	cmd.Flags().IntVar(&runWorkers, "workers", 0,
		"goroutines per aggregation stage")
}

func applyAnalysisFlags(cmd *cobra.Command) {
	if runMinSample > 0 {
		cfg.Analysis.MinSample = runMinSample
	}
	if cmd.Flags().Changed("precision") {
		cfg.Analysis.Precision = runPrecision
	}
	if runWorkers > 0 {
		cfg.Analysis.Workers = runWorkers
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	applyAnalysisFlags(cmd)
	if runExportDir != "" {
		cfg.Export.Dir = runExportDir
	}
	if len(runFormats) > 0 {
		cfg.Export.Formats = runFormats
	}
	if runWriteTables {
		cfg.Export.WriteTables = true
	}
	if runMetricsFile != "" {
		cfg.Export.MetricsFile = runMetricsFile
	}

	// Validate configuration
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := runAnalysis(ctx, cfg, metrics.New())
	return err
}

// computation is the outcome of one load and compute pass.
type computation struct {
	results *analysis.Results
	meta    export.Meta
}

// compute loads a snapshot from st and runs the engine over it. Failures are
// counted in m.
func compute(ctx context.Context, c *config.Config, st store.Source, m *metrics.Metrics) (*computation, error) {
	opts := c.AnalysisOptions()

	start := time.Now()
	snap, err := st.Load(ctx)
	if err != nil {
		m.RecordFailure()
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	logging.Info().
		Str("source", st.Name()).
		Int("orders", len(snap.Orders)).
		Int("order_products", len(snap.Lines)).
		Int("products", len(snap.Products)).
		Dur("duration", time.Since(start)).
		Msg("Loaded snapshot")

	res, err := analysis.NewEngine(opts).WithObserver(m).Run(ctx, snap)
	if err != nil {
		m.RecordFailure()
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	meta := export.NewMeta(opts)
	m.RecordRun(res, meta.ComputedAt)
	return &computation{results: res, meta: meta}, nil
}

// runAnalysis performs a full run: compute, export files, optionally replace
// the result tables, and record run metadata.
func runAnalysis(ctx context.Context, c *config.Config, m *metrics.Metrics) (*computation, error) {
	st, err := openStore(ctx, c)
	if err != nil {
		m.RecordFailure()
		return nil, err
	}
	defer st.Close()

	comp, err := compute(ctx, c, st, m)
	if err != nil {
		return nil, err
	}

	if len(c.Export.Formats) > 0 {
		paths, err := export.New(c.Export.Dir).Write(comp.results, comp.meta, c.Export.Formats)
		if err != nil {
			return nil, fmt.Errorf("failed to export results: %w", err)
		}
		logging.Info().
			Str("dir", c.Export.Dir).
			Int("files", len(paths)).
			Msg("Exported results")
	}

	if c.Export.WriteTables {
		start := time.Now()
		if err := st.WriteResults(ctx, comp.results, comp.meta.Precision); err != nil {
			return nil, fmt.Errorf("failed to write result tables: %w", err)
		}
		logging.Info().
			Dur("duration", time.Since(start)).
			Msg("Replaced result tables")
	}

	if err := st.SaveMetadata(ctx, comp.meta.Fields()); err != nil {
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	if c.Export.MetricsFile != "" {
		if err := m.WriteTextfile(c.Export.MetricsFile); err != nil {
			return nil, err
		}
	}

	logging.Info().
		Str("run_id", comp.meta.RunID).
		Int("copurchase_rows", len(comp.results.CoPurchase)).
		Msg("Run complete")

	return comp, nil
}
