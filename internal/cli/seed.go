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
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-basketinsights/internal/config"
	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
	"github.com/pgEdge/pgedge-basketinsights/pkg/version"
)

var (
	seedCustomers    int
	seedProducts     int
	seedDepartments  int
	seedAisles       int
	seedMaxOrders    int
	seedRandomSeed   uint64
	seedDropExisting bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the base tables and fill them with a synthetic dataset",
	Long: `Create the departments, aisles, products, orders and order_products
tables and populate them with a reproducible synthetic order history.
The same random seed always produces the same dataset.

Example:
  pgedge-basketinsights seed --connection "postgres://..." --customers 5000
  pgedge-basketinsights seed --source sqlite --sqlite-path basket.db`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCustomers, "customers", 0,
		"number of customers to simulate")
	seedCmd.Flags().IntVar(&seedProducts, "products", 0,
		"number of products in the catalog")
	seedCmd.Flags().IntVar(&seedDepartments, "departments", 0,
		"number of departments")
	seedCmd.Flags().IntVar(&seedAisles, "aisles", 0,
		"number of aisles")
	seedCmd.Flags().IntVar(&seedMaxOrders, "max-orders", 0,
		"maximum orders per customer")
	seedCmd.Flags().Uint64Var(&seedRandomSeed, "random-seed", 0,
		"random seed for the generated dataset")
	seedCmd.Flags().BoolVar(&seedDropExisting, "drop-existing", false,
		"drop existing tables before seeding")
}

func runSeed(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if seedCustomers > 0 {
		cfg.Seed.Customers = seedCustomers
	}
	if seedProducts > 0 {
		cfg.Seed.Products = seedProducts
	}
	if seedDepartments > 0 {
		cfg.Seed.Departments = seedDepartments
	}
	if seedAisles > 0 {
		cfg.Seed.Aisles = seedAisles
	}
	if seedMaxOrders > 0 {
		cfg.Seed.MaxOrdersPerCustomer = seedMaxOrders
	}
	if cmd.Flags().Changed("random-seed") {
		cfg.Seed.RandomSeed = seedRandomSeed
	}
	if seedDropExisting {
		cfg.Seed.DropExisting = true
	}

	// Validate configuration
	if err := cfg.ValidateSeed(); err != nil {
		return err
	}

	return seedDatabase(cmd.Context(), cfg)
}

// seedDatabase creates the schema and writes a generated dataset.
func seedDatabase(ctx context.Context, c *config.Config) error {
	logging.Info().
		Str("source", c.Source).
		Int("customers", c.Seed.Customers).
		Int("products", c.Seed.Products).
		Uint64("random_seed", c.Seed.RandomSeed).
		Msg("Seeding database")

	st, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.Close()

	// Check whether a previous seed is being overwritten
	existing, err := st.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	if existing["seeded_at"] != "" && !c.Seed.DropExisting {
		return fmt.Errorf(
			"database was already seeded at %s; use --drop-existing to reseed",
			existing["seeded_at"])
	}

	// Drop existing tables if requested
	if c.Seed.DropExisting {
		logging.Info().Msg("Dropping existing tables")
		if err := st.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	logging.Info().Msg("Creating schema")
	if err := st.CreateSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	gen, err := datagen.NewGenerator(datagen.Params{
		Customers:            c.Seed.Customers,
		Products:             c.Seed.Products,
		Departments:          c.Seed.Departments,
		Aisles:               c.Seed.Aisles,
		MaxOrdersPerCustomer: c.Seed.MaxOrdersPerCustomer,
		Seed:                 c.Seed.RandomSeed,
	})
	if err != nil {
		return fmt.Errorf("invalid seed parameters: %w", err)
	}

	start := time.Now()
	snap := gen.Generate()
	logging.Info().
		Int("orders", len(snap.Orders)).
		Int("order_products", len(snap.Lines)).
		Dur("duration", time.Since(start)).
		Msg("Generated dataset")

	if err := st.Seed(ctx, snap, datagen.DefaultBatchConfig()); err != nil {
		return fmt.Errorf("failed to seed data: %w", err)
	}

	// Save metadata
	meta := version.Fields()
	meta["seeded_at"] = time.Now().UTC().Format(time.RFC3339)
	meta["seed_customers"] = strconv.Itoa(c.Seed.Customers)
	meta["seed_products"] = strconv.Itoa(c.Seed.Products)
	meta["seed_departments"] = strconv.Itoa(c.Seed.Departments)
	meta["seed_aisles"] = strconv.Itoa(c.Seed.Aisles)
	meta["seed_max_orders"] = strconv.Itoa(c.Seed.MaxOrdersPerCustomer)
	meta["seed_random_seed"] = strconv.FormatUint(c.Seed.RandomSeed, 10)
	if err := st.SaveMetadata(ctx, meta); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().
		Str("source", c.Source).
		Int("orders", len(snap.Orders)).
		Msg("Database seeding complete")

	return nil
}
