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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-basketinsights/internal/config"
	"github.com/pgEdge/pgedge-basketinsights/internal/export"
	"github.com/pgEdge/pgedge-basketinsights/internal/metrics"
	"github.com/pgEdge/pgedge-basketinsights/internal/store"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Source = config.SourceSQLite
	c.SQLitePath = filepath.Join(dir, "basket.db")
	c.Seed = config.SeedConfig{
		Customers:            40,
		Products:             30,
		Departments:          3,
		Aisles:               6,
		MaxOrdersPerCustomer: 10,
		RandomSeed:           7,
	}
	c.Analysis.MinSample = 5
	c.Export.Dir = filepath.Join(dir, "out")
	return c
}

// executeCommand runs the root command with fresh flag values.
func executeCommand(args ...string) (string, error) {
	cfgFile, source, connection, sqlitePath, schema, logLevel = "", "", "", "", "", ""
	logJSON = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand("version")
	require.NoError(t, err)
	assert.Contains(t, out, "pgedge-basketinsights")
}

func TestMeasuresCommand(t *testing.T) {
	out, err := executeCommand("measures")
	require.NoError(t, err)
	assert.Contains(t, out, "repurchase_cycle")
	assert.Contains(t, out, "department_order_size")
	assert.Contains(t, out, "copurchase_export")
	assert.Contains(t, out, "sqlite")
}

func TestSeedRejectsUnknownSource(t *testing.T) {
	_, err := executeCommand("--source", "oracle", "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source must be")
}

func TestSeedAndRunCommands(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "basket.db")
	out := filepath.Join(dir, "out")

	_, err := executeCommand("--source", "sqlite", "--sqlite-path", db, "--log-level", "error",
		"seed", "--customers", "30", "--products", "20", "--departments", "2",
		"--aisles", "4", "--max-orders", "8")
	require.NoError(t, err)

	_, err = executeCommand("--source", "sqlite", "--sqlite-path", db, "--log-level", "error",
		"run", "--export-dir", out, "--format", "json", "--min-sample", "3")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, export.DocumentFile))
	_, err = os.Stat(filepath.Join(out, "copurchase.csv"))
	assert.True(t, os.IsNotExist(err), "csv was not requested")
}

func TestSeedDatabase(t *testing.T) {
	c := sqliteConfig(t)
	ctx := context.Background()

	require.NoError(t, seedDatabase(ctx, c))

	err := seedDatabase(ctx, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already seeded")

	c.Seed.DropExisting = true
	require.NoError(t, seedDatabase(ctx, c))

	st, err := openStore(ctx, c)
	require.NoError(t, err)
	defer st.Close()

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Departments, 3)
	assert.Len(t, snap.Products, 30)
	assert.NotEmpty(t, snap.Orders)

	meta, err := st.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "40", meta["seed_customers"])
	assert.Equal(t, "7", meta["seed_random_seed"])
	assert.NotEmpty(t, meta["seeded_at"])
}

func TestRunAnalysis(t *testing.T) {
	c := sqliteConfig(t)
	c.Export.WriteTables = true
	c.Export.MetricsFile = filepath.Join(t.TempDir(), "basketinsights.prom")
	ctx := context.Background()
	require.NoError(t, seedDatabase(ctx, c))

	comp, err := runAnalysis(ctx, c, metrics.New())
	require.NoError(t, err)
	assert.NotEmpty(t, comp.meta.RunID)
	assert.Equal(t, c.Analysis.Precision, comp.meta.Precision)
	assert.Equal(t, 5, comp.meta.MinSample)

	entries, err := os.ReadDir(c.Export.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 8)

	prom, err := os.ReadFile(c.Export.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `basketinsights_runs_total{outcome="success"} 1`)

	st, err := openStore(ctx, c)
	require.NoError(t, err)
	defer st.Close()
	meta, err := st.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, comp.meta.RunID, meta["run_id"])
	assert.NotEmpty(t, meta["seeded_at"])
}

func TestRunAnalysisUnknownSource(t *testing.T) {
	c := sqliteConfig(t)
	c.Source = "oracle"

	_, err := runAnalysis(context.Background(), c, metrics.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrUnknownSource))
}
