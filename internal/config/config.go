//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-basketinsights.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
)

// Supported source drivers.
const (
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Config holds all configuration for pgedge-basketinsights.
type Config struct {
	// Source selects where the base relations are read from: postgres or sqlite.
	Source string `mapstructure:"source"`

	// Connection is the PostgreSQL connection string (postgres source).
	Connection string `mapstructure:"connection"`

	// SQLitePath is the database file (sqlite source).
	SQLitePath string `mapstructure:"sqlite_path"`

	// Schema is the PostgreSQL schema holding the base and result tables.
	Schema string `mapstructure:"schema"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Analysis holds the statistical engine settings.
	Analysis AnalysisConfig `mapstructure:"analysis"`

	// Export holds result output settings.
	Export ExportConfig `mapstructure:"export"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`

	// Serve holds configuration for the serve subcommand.
	Serve ServeConfig `mapstructure:"serve"`
}

// AnalysisConfig holds settings passed to the analysis engine.
type AnalysisConfig struct {
	// MinSample is the minimum observation count for a group or pair.
	MinSample int `mapstructure:"min_sample"`

	// Precision is the number of decimals used when presenting results.
	Precision int `mapstructure:"precision"`

	// Workers bounds the number of goroutines per aggregation stage.
	Workers int `mapstructure:"workers"`

	// PinnedRepurchaseBenchmark fixes the global repurchase-cycle benchmark
	// instead of recomputing it. Unset means recompute every run.
	PinnedRepurchaseBenchmark *float64 `mapstructure:"pinned_repurchase_benchmark"`

	// PinnedOrderSizeBenchmark fixes the global order-size benchmark.
	PinnedOrderSizeBenchmark *float64 `mapstructure:"pinned_order_size_benchmark"`
}

// ExportConfig holds settings for result output.
type ExportConfig struct {
	// Dir is the directory export files are written to.
	Dir string `mapstructure:"dir"`

	// Formats lists the file formats to write (csv, json).
	Formats []string `mapstructure:"formats"`

	// WriteTables replaces the result tables in the source database.
	WriteTables bool `mapstructure:"write_tables"`

	// MetricsFile, when set, receives run metrics in Prometheus text format.
	MetricsFile string `mapstructure:"metrics_file"`
}

// SeedConfig holds configuration for synthetic dataset generation.
type SeedConfig struct {
	// Customers is the number of customers to simulate.
	Customers int `mapstructure:"customers"`

	// Products is the number of products in the catalog.
	Products int `mapstructure:"products"`

	// Departments is the number of departments.
	Departments int `mapstructure:"departments"`

	// Aisles is the number of aisles.
	Aisles int `mapstructure:"aisles"`

	// MaxOrdersPerCustomer caps the order history length per customer.
	MaxOrdersPerCustomer int `mapstructure:"max_orders_per_customer"`

	// RandomSeed makes the generated dataset reproducible.
	RandomSeed uint64 `mapstructure:"random_seed"`

	// DropExisting drops existing tables before seeding.
	DropExisting bool `mapstructure:"drop_existing"`
}

// ServeConfig holds configuration for the HTTP results API.
type ServeConfig struct {
	// Listen is the address the server binds to.
	Listen string `mapstructure:"listen"`

	// ReadTimeout is the request read timeout in seconds.
	ReadTimeout int `mapstructure:"read_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Source:   SourcePostgres,
		Schema:   "public",
		LogLevel: "info",
		Analysis: AnalysisConfig{
			MinSample: analysis.DefaultMinSample,
			Precision: analysis.DefaultPrecision,
			Workers:   4,
		},
		Export: ExportConfig{
			Dir:     "results",
			Formats: []string{FormatCSV, FormatJSON},
		},
		Seed: SeedConfig{
			Customers:            2000,
			Products:             300,
			Departments:          21,
			Aisles:               134,
			MaxOrdersPerCustomer: 30,
			RandomSeed:           42,
		},
		Serve: ServeConfig{
			Listen:      ":8080",
			ReadTimeout: 15,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-basketinsights.yaml
// 3. ~/.config/pgedge-basketinsights/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-basketinsights")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-basketinsights"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the source is fully specified.
func (c *Config) Validate() error {
	switch c.Source {
	case SourcePostgres:
		if c.Connection == "" {
			return fmt.Errorf("connection string is required for the postgres source")
		}
		if c.Schema == "" {
			return fmt.Errorf("schema is required for the postgres source")
		}
	case SourceSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite source")
		}
	case "":
		return fmt.Errorf("source is required")
	default:
		return fmt.Errorf("source must be '%s' or '%s', got '%s'",
			SourcePostgres, SourceSQLite, c.Source)
	}
	return nil
}

// ValidateRun checks configuration required for the run command.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	for _, f := range c.Export.Formats {
		if f != FormatCSV && f != FormatJSON {
			return fmt.Errorf("unknown export format: %s", f)
		}
	}
	if len(c.Export.Formats) > 0 && c.Export.Dir == "" {
		return fmt.Errorf("export dir is required when export formats are set")
	}
	if len(c.Export.Formats) == 0 && !c.Export.WriteTables {
		return fmt.Errorf("nothing to write: set export formats or write_tables")
	}
	return nil
}

// ValidateSeed checks configuration required for the seed command.
func (c *Config) ValidateSeed() error {
	if err := c.Validate(); err != nil {
		return err
	}
	s := c.Seed
	if s.Customers < 1 {
		return fmt.Errorf("seed customers must be at least 1")
	}
	if s.Departments < 1 {
		return fmt.Errorf("seed departments must be at least 1")
	}
	if s.Aisles < s.Departments {
		return fmt.Errorf("seed aisles must be >= departments")
	}
	if s.Products < s.Aisles {
		return fmt.Errorf("seed products must be >= aisles")
	}
	if s.MaxOrdersPerCustomer < 1 {
		return fmt.Errorf("seed max_orders_per_customer must be at least 1")
	}
	return nil
}

// ValidateServe checks configuration required for the serve command.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if c.Serve.Listen == "" {
		return fmt.Errorf("serve listen address is required")
	}
	if c.Serve.ReadTimeout < 1 {
		return fmt.Errorf("serve read_timeout must be at least 1 second")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.MinSample < 1 {
		return fmt.Errorf("min_sample must be at least 1")
	}
	if c.Analysis.Precision < 0 || c.Analysis.Precision > 10 {
		return fmt.Errorf("precision must be between 0 and 10")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

// AnalysisOptions converts the analysis section into engine options.
func (c *Config) AnalysisOptions() analysis.Options {
	opts := analysis.Options{
		MinSample: c.Analysis.MinSample,
		Precision: c.Analysis.Precision,
		Workers:   c.Analysis.Workers,
	}
	if p := c.Analysis.PinnedRepurchaseBenchmark; p != nil {
		opts.PinnedRepurchase = analysis.Valid(*p)
	}
	if p := c.Analysis.PinnedOrderSizeBenchmark; p != nil {
		opts.PinnedOrderSize = analysis.Valid(*p)
	}
	return opts
}

// HasFormat reports whether the given export format is enabled.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.Export.Formats, format)
}
