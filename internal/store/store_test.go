//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

func setupTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.CreateSchema(context.Background()))
	return s
}

func testSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()
	g, err := datagen.NewGenerator(datagen.Params{
		Customers:            60,
		Products:             20,
		Departments:          3,
		Aisles:               6,
		MaxOrdersPerCustomer: 8,
		Seed:                 11,
	})
	require.NoError(t, err)
	return g.Generate()
}

// xySnapshot has no prior gaps, so the repurchase benchmark is undefined.
func xySnapshot() *dataset.Snapshot {
	b := datagen.NewBuilder().
		Department(1, "produce").
		Aisle(1, "fresh fruits").
		Product(10, "Bananas", 1, 1).
		Product(20, "Strawberries", 1, 1)
	for i := 0; i < 35; i++ {
		b.Orders(3, int64(i+1), nil, 10, 20)
		b.Order(int64(i+1), nil, 10)
	}
	return b.Snapshot()
}

func TestOpenUnknownSource(t *testing.T) {
	_, err := Open(context.Background(), "oracle", Config{})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestRegisteredSources(t *testing.T) {
	assert.Equal(t, []string{PostgresSource, SQLiteSource}, List())

	s, err := Open(context.Background(), SQLiteSource, Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, SQLiteSource, s.Name())
}

func TestSQLiteSeedLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	snap := testSnapshot(t)

	require.NoError(t, s.Seed(ctx, snap, datagen.BatchConfig{BatchSize: 50, ProgressInterval: 100}))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, snap.Departments, loaded.Departments)
	assert.Equal(t, snap.Aisles, loaded.Aisles)
	assert.Equal(t, snap.Products, loaded.Products)
	assert.Equal(t, snap.Orders, loaded.Orders)
	assert.ElementsMatch(t, snap.Lines, loaded.Lines)
	require.NoError(t, loaded.Validate())
}

func TestSQLiteLoadKeepsDuplicateLines(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	b := datagen.NewBuilder().Product(1, "Tea", 1, 1)
	b.Order(1, nil, 1, 1)
	require.NoError(t, s.Seed(ctx, b.Snapshot(), datagen.DefaultBatchConfig()))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Lines, 2)

	idx, err := loaded.Index()
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Baskets()[0].Size())
}

func TestSQLiteWriteResults(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	res, err := analysis.NewEngine(analysis.DefaultOptions()).Run(ctx, xySnapshot())
	require.NoError(t, err)

	// Writing twice replaces rather than appends.
	require.NoError(t, s.WriteResults(ctx, res, 2))
	require.NoError(t, s.WriteResults(ctx, res, 2))

	count := func(table string) int64 {
		var n int64
		require.NoError(t, s.db.Table(table).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(0), count(TableProductRepurchase))
	assert.Equal(t, int64(2), count(TableProductOrderSize))
	assert.Equal(t, int64(2), count(TableCoPurchase))
	assert.Equal(t, int64(2), count(TableCoPurchaseExport))
	assert.Equal(t, int64(2), count(TableBenchmarks))

	var co coPurchaseModel
	require.NoError(t, s.db.Where("anchor_id = ?", 10).First(&co).Error)
	require.NotNil(t, co.AnchorPercentage)
	assert.Equal(t, 75.0, *co.AnchorPercentage)
	assert.Equal(t, int64(140), co.AnchorTotalOrders)

	var exp coPurchaseExportModel
	require.NoError(t, s.db.Where("anchor_id = ?", 10).First(&exp).Error)
	assert.False(t, exp.RepurchaseAvailable)
	assert.Nil(t, exp.RepurchaseMean)
	assert.True(t, exp.OrderSizeAvailable)
	require.NotNil(t, exp.OrderSizeMean)
	assert.Equal(t, 1.75, *exp.OrderSizeMean)

	var bench benchmarkModel
	require.NoError(t, s.db.Where("measure = ?", string(analysis.RepurchaseCycle)).First(&bench).Error)
	assert.Nil(t, bench.Value)
	assert.Equal(t, 0, bench.Observations)

	var size productMetricModel
	require.NoError(t, s.db.Table(TableProductOrderSize).Where("product_id = ?", 10).First(&size).Error)
	assert.Equal(t, "Bananas", size.ProductName)
	assert.Equal(t, 140, size.Stats.SampleCount)
}

func TestSQLiteWriteResultsRoundsAtPrecision(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	res, err := analysis.NewEngine(analysis.DefaultOptions()).Run(ctx, xySnapshot())
	require.NoError(t, err)
	require.NoError(t, s.WriteResults(ctx, res, 0))

	var size productMetricModel
	require.NoError(t, s.db.Table(TableProductOrderSize).Where("product_id = ?", 10).First(&size).Error)
	assert.Equal(t, 2.0, size.Stats.Mean)

	// The in-memory results keep full precision.
	x, ok := analysis.FindLift(res.ProductOrderSize.Results, 10)
	require.True(t, ok)
	assert.Equal(t, 1.75, x.Mean)
}

func TestSQLiteMetadata(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	// No table yet.
	md, err := s.Metadata(ctx)
	require.NoError(t, err)
	assert.Empty(t, md)

	require.NoError(t, s.SaveMetadata(ctx, map[string]string{"run_id": "a", "version": "dev"}))
	require.NoError(t, s.SaveMetadata(ctx, map[string]string{"run_id": "b"}))

	md, err = s.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"run_id": "b", "version": "dev"}, md)
}

func TestSQLiteDropSchema(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.SaveMetadata(ctx, map[string]string{"k": "v"}))

	require.NoError(t, s.DropSchema(ctx))

	for _, table := range append(ResultTables(), TableOrders, TableOrderProducts, MetadataTable) {
		assert.False(t, s.db.Migrator().HasTable(table), table)
	}

	// Recreate after drop.
	require.NoError(t, s.CreateSchema(ctx))
	assert.True(t, s.db.Migrator().HasTable(TableOrders))
}

func TestMetricColumns(t *testing.T) {
	assert.Equal(t, "product_id", metricColumns(analysis.ByProduct)[0])
	assert.Equal(t, "department_name", metricColumns(analysis.ByDepartment)[1])
	assert.Len(t, ResultTables(), 7)

	v := metricValues(analysis.LiftResult{GroupedMetric: analysis.GroupedMetric{EntityID: 3, Count: 31}})
	require.Len(t, v, len(metricColumns(analysis.ByProduct)))
	assert.Nil(t, v[4])
	assert.Len(t, exportValues(analysis.AssembledRow{}), len(exportColumns))
	assert.Len(t, coPurchaseValues(analysis.CoPurchaseRow{}), len(coPurchaseColumns))
	assert.Len(t, benchmarkValues(analysis.Benchmark{}), len(benchmarkColumns))
}

func TestSQLFloat(t *testing.T) {
	assert.Equal(t, "NULL", sqlFloat(nil))
	assert.Equal(t, "7", sqlFloat(dataset.Days(7)))
	assert.Equal(t, "2.5", sqlFloat(dataset.Days(2.5)))
	assert.Equal(t, "O''Brien", escapeSingleQuote("O'Brien"))
}
