//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package analysis

import "slices"

// Rounded returns a copy of r with every statistic rounded to precision
// decimals. r is left untouched.
func (r *Results) Rounded(precision int) *Results {
	out := *r
	out.RepurchaseBenchmark = r.RepurchaseBenchmark.Rounded(precision)
	out.OrderSizeBenchmark = r.OrderSizeBenchmark.Rounded(precision)
	out.ProductRepurchase = r.ProductRepurchase.Rounded(precision)
	out.ProductOrderSize = r.ProductOrderSize.Rounded(precision)
	out.DepartmentRepurchase = r.DepartmentRepurchase.Rounded(precision)
	out.DepartmentOrderSize = r.DepartmentOrderSize.Rounded(precision)

	out.CoPurchase = make([]CoPurchaseRow, len(r.CoPurchase))
	for i, row := range r.CoPurchase {
		row.AnchorPercentage = row.AnchorPercentage.Rounded(precision)
		out.CoPurchase[i] = row
	}

	out.Assembled = make([]AssembledRow, len(r.Assembled))
	for i, row := range r.Assembled {
		row.AnchorPercentage = row.AnchorPercentage.Rounded(precision)
		row.Repurchase = row.Repurchase.Rounded(precision)
		row.OrderSize = row.OrderSize.Rounded(precision)
		out.Assembled[i] = row
	}

	out.Warnings = slices.Clone(r.Warnings)
	return &out
}

// Rounded returns the benchmark with its values rounded.
func (b Benchmark) Rounded(precision int) Benchmark {
	b.Value = b.Value.Rounded(precision)
	b.Live = b.Live.Rounded(precision)
	return b
}

// Rounded returns a copy of the set with every statistic rounded.
func (s MetricSet) Rounded(precision int) MetricSet {
	results := make([]LiftResult, len(s.Results))
	for i, r := range s.Results {
		results[i] = r.Rounded(precision)
	}
	s.Results = results
	s.Insufficient = slices.Clone(s.Insufficient)
	return s
}

// Rounded returns the lift result with every statistic rounded.
func (r LiftResult) Rounded(precision int) LiftResult {
	r.Mean = Round(r.Mean, precision)
	r.StdDev = Round(r.StdDev, precision)
	r.Lift = r.Lift.Rounded(precision)
	r.ZScore = r.ZScore.Rounded(precision)
	return r
}

// Rounded returns the anchor metrics with every statistic rounded.
func (m AnchorMetrics) Rounded(precision int) AnchorMetrics {
	m.Mean = m.Mean.Rounded(precision)
	m.Lift = m.Lift.Rounded(precision)
	m.ZScore = m.ZScore.Rounded(precision)
	return m
}
