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
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
	"github.com/pgEdge/pgedge-basketinsights/internal/logging"
)

// StageObserver receives the wall time of each pipeline stage.
type StageObserver interface {
	ObserveStage(stage string, d time.Duration)
}

// MetricSet is a normalized result set for one (grouping, measure).
type MetricSet struct {
	Grouping     Grouping       `json:"grouping"`
	Measure      Measure        `json:"measure"`
	Results      []LiftResult   `json:"results"`
	Insufficient []Insufficient `json:"insufficient"`
}

// Summary describes the input a run consumed.
type Summary struct {
	Orders      int `json:"orders"`
	Lines       int `json:"lines"`
	Products    int `json:"products"`
	Departments int `json:"departments"`
	Pairs       int `json:"pairs"`
}

// Results is everything one run produces. Values are full precision.
type Results struct {
	Options Options `json:"-"`

	RepurchaseBenchmark Benchmark `json:"repurchase_benchmark"`
	OrderSizeBenchmark  Benchmark `json:"order_size_benchmark"`

	ProductRepurchase    MetricSet `json:"product_repurchase_cycle"`
	ProductOrderSize     MetricSet `json:"product_order_size"`
	DepartmentRepurchase MetricSet `json:"department_repurchase_cycle"`
	DepartmentOrderSize  MetricSet `json:"department_order_size"`

	CoPurchase []CoPurchaseRow `json:"copurchase"`
	Assembled  []AssembledRow  `json:"assembled"`

	// Warnings lists recoverable conditions such as an undefined benchmark.
	Warnings []string `json:"warnings"`

	Summary Summary `json:"summary"`
}

// Benchmarks returns both benchmarks, repurchase cycle first.
func (r *Results) Benchmarks() []Benchmark {
	return []Benchmark{r.RepurchaseBenchmark, r.OrderSizeBenchmark}
}

// Set returns the metric set for a grouping and measure.
func (r *Results) Set(g Grouping, m Measure) (MetricSet, bool) {
	switch {
	case g == ByProduct && m == RepurchaseCycle:
		return r.ProductRepurchase, true
	case g == ByProduct && m == OrderSize:
		return r.ProductOrderSize, true
	case g == ByDepartment && m == RepurchaseCycle:
		return r.DepartmentRepurchase, true
	case g == ByDepartment && m == OrderSize:
		return r.DepartmentOrderSize, true
	}
	return MetricSet{}, false
}

// Sets returns every metric set in a fixed order.
func (r *Results) Sets() []MetricSet {
	return []MetricSet{r.ProductRepurchase, r.ProductOrderSize, r.DepartmentRepurchase, r.DepartmentOrderSize}
}

// Engine runs the full pipeline over a snapshot.
type Engine struct {
	opts     Options
	log      zerolog.Logger
	observer StageObserver
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts: opts.withDefaults(),
		log:  logging.Component("engine"),
	}
}

// WithObserver sets a stage observer and returns the engine.
func (e *Engine) WithObserver(o StageObserver) *Engine {
	e.observer = o
	return e
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run computes every result set. Benchmarks, the four grouped aggregations
// and pair counting run concurrently; normalization waits for all of them
// and assembly comes last. The first error cancels the remaining stages.
func (e *Engine) Run(ctx context.Context, snap *dataset.Snapshot) (*Results, error) {
	start := time.Now()

	idx, err := e.timed("index", func() (*dataset.Index, error) { return snap.Index() })
	if err != nil {
		return nil, fmt.Errorf("failed to index snapshot: %w", err)
	}

	res := &Results{
		Options: e.opts,
		Summary: Summary{
			Orders:      len(idx.Baskets()),
			Lines:       idx.LineCount(),
			Products:    len(idx.ProductIDs()),
			Departments: len(idx.DepartmentIDs()),
		},
	}

	type groupKey struct {
		g Grouping
		m Measure
	}
	var (
		mu     sync.Mutex
		groups = make(map[groupKey]GroupResult, 4)
		counts map[PairKey]int
	)

	eg, gctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		t := time.Now()
		res.RepurchaseBenchmark = GlobalRepurchaseCycle(idx).pin(e.opts.PinnedRepurchase)
		res.OrderSizeBenchmark = GlobalOrderSize(idx).pin(e.opts.PinnedOrderSize)
		e.observe("benchmarks", time.Since(t))
		return nil
	})

	for _, g := range Groupings {
		for _, m := range Measures {
			eg.Go(func() error {
				t := time.Now()
				gr, err := Aggregate(gctx, idx, g, m, e.opts)
				if err != nil {
					return err
				}
				e.observe(fmt.Sprintf("aggregate_%s_%s", g, m), time.Since(t))
				mu.Lock()
				groups[groupKey{g, m}] = gr
				mu.Unlock()
				return nil
			})
		}
	}

	eg.Go(func() error {
		t := time.Now()
		c, err := PairCounts(gctx, idx, e.opts)
		if err != nil {
			return err
		}
		e.observe("pair_counts", time.Since(t))
		counts = c
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, b := range res.Benchmarks() {
		e.logBenchmark(res, b)
	}

	t := time.Now()
	normalize := func(g Grouping, m Measure, bench Benchmark) MetricSet {
		gr := groups[groupKey{g, m}]
		e.logExclusions(gr)
		return MetricSet{
			Grouping:     g,
			Measure:      m,
			Results:      Normalize(gr.Metrics, bench.Value, m, e.opts.Precision),
			Insufficient: gr.Insufficient,
		}
	}
	res.ProductRepurchase = normalize(ByProduct, RepurchaseCycle, res.RepurchaseBenchmark)
	res.ProductOrderSize = normalize(ByProduct, OrderSize, res.OrderSizeBenchmark)
	res.DepartmentRepurchase = normalize(ByDepartment, RepurchaseCycle, res.RepurchaseBenchmark)
	res.DepartmentOrderSize = normalize(ByDepartment, OrderSize, res.OrderSizeBenchmark)
	e.observe("normalize", time.Since(t))

	t = time.Now()
	res.CoPurchase = Rows(idx, counts, e.opts.Precision)
	res.Summary.Pairs = len(counts)
	res.Assembled = Assemble(idx, res.CoPurchase, res.ProductRepurchase.Results, res.ProductOrderSize.Results,
		e.opts.Precision)
	e.observe("assemble", time.Since(t))

	e.log.Info().
		Int("orders", res.Summary.Orders).
		Int("pairs", res.Summary.Pairs).
		Int("assembled_rows", len(res.Assembled)).
		Int("warnings", len(res.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis complete")

	return res, nil
}

func (e *Engine) logBenchmark(res *Results, b Benchmark) {
	if !b.Live.Valid && !b.Pinned {
		msg := fmt.Sprintf("%s benchmark undefined: no qualifying orders; dependent lifts are null", b.Measure)
		res.Warnings = append(res.Warnings, msg)
		e.log.Warn().Str("measure", string(b.Measure)).Msg("Benchmark undefined, no qualifying orders")
		return
	}
	ev := e.log.Info().
		Str("measure", string(b.Measure)).
		Int("observations", b.Observations)
	if b.Pinned {
		ev = ev.Bool("pinned", true).Float64("value", b.Value.Float64)
		if b.Live.Valid {
			ev = ev.Float64("live", b.Live.Float64)
		}
		ev.Msg("Using pinned benchmark")
		return
	}
	ev.Float64("value", b.Value.Float64).Msg("Computed benchmark")
}

func (e *Engine) logExclusions(gr GroupResult) {
	e.log.Info().
		Str("grouping", string(gr.Grouping)).
		Str("measure", string(gr.Measure)).
		Int("qualifying", len(gr.Metrics)).
		Int("insufficient", len(gr.Insufficient)).
		Msg("Grouped metrics")
	for _, x := range gr.Insufficient {
		e.log.Debug().
			Str("grouping", string(gr.Grouping)).
			Str("measure", string(gr.Measure)).
			Int64("id", x.EntityID).
			Int("count", x.Count).
			Msg("Excluded below minimum sample")
	}
}

func (e *Engine) observe(stage string, d time.Duration) {
	e.log.Debug().Str("stage", stage).Dur("elapsed", d).Msg("Stage finished")
	if e.observer != nil {
		e.observer.ObserveStage(stage, d)
	}
}

func (e *Engine) timed(stage string, fn func() (*dataset.Index, error)) (*dataset.Index, error) {
	t := time.Now()
	idx, err := fn()
	if err == nil {
		e.observe(stage, time.Since(t))
	}
	return idx, err
}
