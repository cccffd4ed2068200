//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-basketinsights.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/config"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
	"github.com/pgEdge/pgedge-basketinsights/internal/store"
	"github.com/pgEdge/pgedge-basketinsights/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	source     string
	connection string
	sqlitePath string
	schema     string
	logLevel   string
	logJSON    bool

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-basketinsights",
		Short: "Customer repurchase and co-purchase analytics for order data",
		Long: `pgedge-basketinsights reads a grocery order history from PostgreSQL or
SQLite and computes per-product and per-department repurchase cycles and
order sizes, normalized against global benchmarks, together with product
co-purchase percentages.

Results are written as CSV and JSON files, optionally back into result
tables in the source database, and can be served over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-basketinsights.yaml)")
	rootCmd.PersistentFlags().StringVar(&source, "source", "",
		"source database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "",
		"SQLite database file")
	rootCmd.PersistentFlags().StringVar(&schema, "schema", "",
		"PostgreSQL schema holding the base and result tables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"write logs as JSON instead of console output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(measuresCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if source != "" {
		cfg.Source = source
	}
	if connection != "" {
		cfg.Connection = connection
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if schema != "" {
		cfg.Schema = schema
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: !logJSON,
	})

	return nil
}

// openStore connects to the configured source.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Source, store.Config{
		Connection: c.Connection,
		Schema:     c.Schema,
		SQLitePath: c.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", c.Source, err)
	}
	return st, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var measuresCmd = &cobra.Command{
	Use:   "measures",
	Short: "List available measures and result sets",
	Long: `List the behavioral measures computed per product and per department,
and the result sets produced by each run.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Measures:")
		cmd.Println()
		for _, m := range analysis.Measures {
			cmd.Printf("  %-17s - %s\n", m, measureDescription(m))
		}
		cmd.Println()
		cmd.Println("Result sets:")
		cmd.Println()
		for _, g := range analysis.Groupings {
			for _, m := range analysis.Measures {
				cmd.Printf("  %s_%s\n", g, m)
			}
		}
		cmd.Println("  copurchase")
		cmd.Println("  copurchase_export")
		cmd.Println("  benchmarks")
		cmd.Println()
		cmd.Println("Sources:")
		cmd.Println()
		for _, name := range store.List() {
			cmd.Printf("  %s\n", name)
		}
	},
}

func measureDescription(m analysis.Measure) string {
	switch m {
	case analysis.RepurchaseCycle:
		return "days since the customer's prior order, per order line"
	case analysis.OrderSize:
		return "distinct products per order"
	}
	return ""
}
