//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package analysis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-basketinsights/internal/datagen"
	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

type recordingObserver struct {
	mu     sync.Mutex
	stages map[string]int
}

func (r *recordingObserver) ObserveStage(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = make(map[string]int)
	}
	r.stages[stage]++
}

func generated(t *testing.T) *dataset.Snapshot {
	t.Helper()
	g, err := datagen.NewGenerator(datagen.Params{
		Customers:            300,
		Products:             40,
		Departments:          5,
		Aisles:               10,
		MaxOrdersPerCustomer: 15,
		Seed:                 7,
	})
	require.NoError(t, err)
	return g.Generate()
}

func TestBenchmarks(t *testing.T) {
	idx := knownMeans(t)

	rc := GlobalRepurchaseCycle(idx)
	require.True(t, rc.Value.Valid)
	assert.Equal(t, 99, rc.Observations)
	assert.InDelta(t, 830.0/99.0, rc.Value.Float64, 1e-12)
	assert.Equal(t, "8.38", rc.Value.Format(2))

	size := GlobalOrderSize(idx)
	require.True(t, size.Value.Valid)
	assert.Equal(t, 104, size.Observations)
	assert.InDelta(t, 109.0/104.0, size.Value.Float64, 1e-12)
}

func TestBenchmarksCountEmptyOrders(t *testing.T) {
	b := datagen.NewBuilder().Product(1, "Milk", 1, 1)
	b.Order(1, dataset.Days(10), 1)
	b.Order(1, dataset.Days(20)) // no lines

	idx, err := b.Snapshot().Index()
	require.NoError(t, err)

	// Repurchase benchmark covers every order with a prior gap.
	assert.Equal(t, Valid(15), GlobalRepurchaseCycle(idx).Value)
	// Order size only covers orders that have lines.
	size := GlobalOrderSize(idx)
	assert.Equal(t, Valid(1), size.Value)
	assert.Equal(t, 1, size.Observations)
}

func TestBenchmarkRoundingBoundary(t *testing.T) {
	b := datagen.NewBuilder().Product(1, "Milk", 1, 1)
	b.Orders(35, 1, dataset.Days(13), 1)
	b.Orders(5, 1, dataset.Days(14), 1)

	idx, err := b.Snapshot().Index()
	require.NoError(t, err)

	rc := GlobalRepurchaseCycle(idx)
	assert.Equal(t, Valid(13.125), rc.Value)
	assert.Equal(t, "13.13", rc.Value.Format(2))
}

func TestBenchmarksEmptyInput(t *testing.T) {
	idx, err := (&dataset.Snapshot{}).Index()
	require.NoError(t, err)

	rc := GlobalRepurchaseCycle(idx)
	assert.False(t, rc.Value.Valid)
	assert.Zero(t, rc.Observations)
	assert.False(t, GlobalOrderSize(idx).Value.Valid)
}

func TestEngineRunScenario(t *testing.T) {
	obs := &recordingObserver{}
	eng := NewEngine(DefaultOptions()).WithObserver(obs)

	b := datagen.NewBuilder().
		Department(1, "produce").
		Aisle(1, "fresh fruits").
		Product(productX, "Bananas", 1, 1).
		Product(productY, "Strawberries", 1, 1)
	for i := 0; i < 35; i++ {
		b.Orders(3, int64(i+1), nil, productX, productY)
		b.Order(int64(i+1), nil, productX)
	}

	res, err := eng.Run(context.Background(), b.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, 140, res.Summary.Orders)
	assert.Equal(t, 1, res.Summary.Pairs)

	// No order has a prior gap: repurchase benchmark is undefined.
	assert.False(t, res.RepurchaseBenchmark.Value.Valid)
	assert.Len(t, res.Warnings, 1)
	assert.Empty(t, res.ProductRepurchase.Results)

	// Order size: X is in 105 two-item and 35 one-item orders.
	assert.InDelta(t, 245.0/140.0, res.OrderSizeBenchmark.Value.Float64, 1e-12)
	x, ok := FindLift(res.ProductOrderSize.Results, productX)
	require.True(t, ok)
	assert.InDelta(t, 245.0/140.0, x.Mean, 1e-12)

	require.Len(t, res.CoPurchase, 2)
	require.Len(t, res.Assembled, 2)

	row := res.Assembled[1]
	assert.Equal(t, productX, row.AnchorID)
	assert.Equal(t, "75.00", row.AnchorPercentage.Format(2))
	assert.Equal(t, "produce", row.AnchorDepartment)
	assert.Equal(t, "fresh fruits", row.AnchorAisle)
	assert.Equal(t, "produce", row.CoProductDepartment)

	// Anchors without a qualifying repurchase metric are kept with nulls.
	assert.False(t, row.Repurchase.Available)
	assert.False(t, row.Repurchase.Mean.Valid)
	assert.False(t, row.Repurchase.Lift.Valid)
	assert.True(t, row.OrderSize.Available)
	assert.True(t, row.OrderSize.Mean.Valid)

	for _, stage := range []string{"index", "benchmarks", "pair_counts", "normalize", "assemble", "aggregate_department_order_size"} {
		assert.Equal(t, 1, obs.stages[stage], "stage %s", stage)
	}
}

func TestEngineIdempotent(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 4

	first, err := NewEngine(opts).Run(context.Background(), generated(t))
	require.NoError(t, err)
	second, err := NewEngine(opts).Run(context.Background(), generated(t))
	require.NoError(t, err)

	a, err := json.Marshal(first.Rounded(opts.Precision))
	require.NoError(t, err)
	b, err := json.Marshal(second.Rounded(opts.Precision))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	// The generated dataset exercises every result set.
	assert.NotEmpty(t, first.ProductRepurchase.Results)
	assert.NotEmpty(t, first.ProductOrderSize.Results)
	assert.NotEmpty(t, first.DepartmentRepurchase.Results)
	assert.NotEmpty(t, first.DepartmentOrderSize.Results)
	assert.NotEmpty(t, first.CoPurchase)
	assert.Empty(t, first.Warnings)
}

func TestEngineWorkerCountDoesNotChangeResults(t *testing.T) {
	snap := generated(t)

	one, err := NewEngine(testOptions(1)).Run(context.Background(), snap)
	require.NoError(t, err)
	many, err := NewEngine(testOptions(8)).Run(context.Background(), snap)
	require.NoError(t, err)

	// Presented output is byte-identical, not merely close.
	a, err := json.Marshal(one.Rounded(2))
	require.NoError(t, err)
	b, err := json.Marshal(many.Rounded(2))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	assert.Equal(t, one.ProductRepurchase, many.ProductRepurchase)
	assert.Equal(t, one.DepartmentOrderSize, many.DepartmentOrderSize)
	assert.Equal(t, one.CoPurchase, many.CoPurchase)
}

func TestEnginePinnedBenchmark(t *testing.T) {
	opts := DefaultOptions()
	opts.PinnedOrderSize = Valid(1)

	res, err := NewEngine(opts).Run(context.Background(), generated(t))
	require.NoError(t, err)

	bench := res.OrderSizeBenchmark
	assert.True(t, bench.Pinned)
	assert.Equal(t, Valid(1), bench.Value)
	require.True(t, bench.Live.Valid)
	assert.NotEqual(t, 1.0, bench.Live.Float64)

	for _, r := range res.ProductOrderSize.Results {
		assert.InDelta(t, r.Mean-1, r.Lift.Float64, 1e-12)
	}
	assert.False(t, res.RepurchaseBenchmark.Pinned)
}

func TestEngineMalformedSnapshot(t *testing.T) {
	snap := &dataset.Snapshot{
		Orders: []dataset.Order{{ID: 1}},
		Lines:  []dataset.OrderLine{{OrderID: 1, ProductID: 5}},
	}
	_, err := NewEngine(DefaultOptions()).Run(context.Background(), snap)
	assert.ErrorIs(t, err, dataset.ErrMalformedSnapshot)
}

func TestEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(DefaultOptions()).Run(ctx, generated(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultsSetLookup(t *testing.T) {
	res, err := NewEngine(DefaultOptions()).Run(context.Background(), generated(t))
	require.NoError(t, err)

	for _, g := range Groupings {
		for _, m := range Measures {
			set, ok := res.Set(g, m)
			require.True(t, ok)
			assert.Equal(t, g, set.Grouping)
			assert.Equal(t, m, set.Measure)
		}
	}
	_, ok := res.Set(Grouping("aisle"), OrderSize)
	assert.False(t, ok)
	assert.Len(t, res.Sets(), 4)
	assert.Len(t, res.Benchmarks(), 2)
}

func TestRoundedLeavesOriginal(t *testing.T) {
	res, err := NewEngine(DefaultOptions()).Run(context.Background(), generated(t))
	require.NoError(t, err)
	require.NotEmpty(t, res.CoPurchase)

	orig := res.CoPurchase[0].AnchorPercentage
	rounded := res.Rounded(0)
	assert.Equal(t, orig, res.CoPurchase[0].AnchorPercentage)
	assert.Equal(t, Round(orig.Float64, 0), rounded.CoPurchase[0].AnchorPercentage.Float64)
}
