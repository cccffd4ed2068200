//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the PostgreSQL store.
// Run with: go test -tags=integration ./internal/store/...
// Set PGEDGE_TEST_CONN environment variable to override connection string.

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/db"
	"github.com/pgEdge/pgedge-basketinsights/internal/store"
	"github.com/pgEdge/pgedge-basketinsights/internal/testutil"
)

func TestPostgresIntegration(t *testing.T) {
	connStr := testutil.SetupTestDB(t, "store")
	ctx := context.Background()

	s, err := store.Open(ctx, store.PostgresSource, store.Config{Connection: connStr, Schema: "basket"})
	require.NoError(t, err)
	defer s.Close()
	pg := s.(*store.Postgres)

	g, err := datagen.NewGenerator(datagen.Params{
		Customers:            80,
		Products:             25,
		Departments:          4,
		Aisles:               8,
		MaxOrdersPerCustomer: 10,
		Seed:                 3,
	})
	require.NoError(t, err)
	snap := g.Generate()

	t.Run("CreateSchema", func(t *testing.T) {
		require.NoError(t, s.CreateSchema(ctx))
		// Idempotent
		require.NoError(t, s.CreateSchema(ctx))
	})

	t.Run("SeedAndLoad", func(t *testing.T) {
		require.NoError(t, s.Seed(ctx, snap, datagen.BatchConfig{BatchSize: 100, ProgressInterval: 1000}))

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap.Departments, loaded.Departments)
		assert.Equal(t, snap.Products, loaded.Products)
		assert.Equal(t, snap.Orders, loaded.Orders)
		assert.ElementsMatch(t, snap.Lines, loaded.Lines)
	})

	t.Run("WriteResults", func(t *testing.T) {
		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		res, err := analysis.NewEngine(analysis.DefaultOptions()).Run(ctx, loaded)
		require.NoError(t, err)

		require.NoError(t, s.WriteResults(ctx, res, 2))
		require.NoError(t, s.WriteResults(ctx, res, 2))

		var n int
		err = pg.Pool().QueryRow(ctx, "SELECT count(*) FROM "+db.Table("basket", store.TableCoPurchase)).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, len(res.CoPurchase), n)

		err = pg.Pool().QueryRow(ctx, "SELECT count(*) FROM "+db.Table("basket", store.TableBenchmarks)).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("Metadata", func(t *testing.T) {
		require.NoError(t, s.SaveMetadata(ctx, map[string]string{"run_id": "one"}))
		require.NoError(t, s.SaveMetadata(ctx, map[string]string{"run_id": "two", "precision": "2"}))

		md, err := s.Metadata(ctx)
		require.NoError(t, err)
		assert.Equal(t, "two", md["run_id"])
		assert.Equal(t, "2", md["precision"])

		v, err := db.GetMetadataValue(ctx, pg.Pool(), "basket", "precision")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("DropSchema", func(t *testing.T) {
		require.NoError(t, s.DropSchema(ctx))
		exists, err := db.MetadataExists(ctx, pg.Pool(), "basket")
		require.NoError(t, err)
		assert.False(t, exists)

		md, err := s.Metadata(ctx)
		require.NoError(t, err)
		assert.Empty(t, md)
	})
}
