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
	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

// Benchmark is a global baseline for one measure.
type Benchmark struct {
	Measure Measure `json:"measure"`

	// Value is the benchmark lifts are computed against.
	Value NullFloat `json:"value"`

	// Live is the value recomputed from this snapshot. It equals Value
	// unless the benchmark is pinned.
	Live NullFloat `json:"live"`

	Observations int  `json:"observations"`
	Pinned       bool `json:"pinned"`
}

// GlobalRepurchaseCycle is the mean days_since_prior over every order where
// it is defined. Null when no such order exists.
func GlobalRepurchaseCycle(idx *dataset.Index) Benchmark {
	var acc accumulator
	for _, b := range idx.Baskets() {
		if b.DaysSincePrior != nil {
			acc.add(*b.DaysSincePrior)
		}
	}
	return newBenchmark(RepurchaseCycle, acc)
}

// GlobalOrderSize is the mean distinct-product count over every order that
// has at least one line. Null when no order has lines.
func GlobalOrderSize(idx *dataset.Index) Benchmark {
	var acc accumulator
	for _, b := range idx.Baskets() {
		if b.Size() > 0 {
			acc.add(float64(b.Size()))
		}
	}
	return newBenchmark(OrderSize, acc)
}

func newBenchmark(m Measure, acc accumulator) Benchmark {
	b := Benchmark{Measure: m, Observations: acc.n}
	if acc.n > 0 {
		b.Value = Valid(acc.mean())
	}
	b.Live = b.Value
	return b
}

// pin replaces the benchmark value with a configured one, keeping the live
// value for reporting.
func (b Benchmark) pin(v NullFloat) Benchmark {
	if !v.Valid {
		return b
	}
	b.Value = v
	b.Pinned = true
	return b
}
