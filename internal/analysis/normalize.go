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
	"cmp"
	"slices"
)

// LiftResult is a grouped metric standardized against its benchmark.
type LiftResult struct {
	GroupedMetric
	Lift   NullFloat `json:"lift"`
	ZScore NullFloat `json:"zscore"`
}

// Lift is the signed deviation of mean from the benchmark, oriented so a
// positive value is more notable: a shorter repurchase cycle or a larger
// order. Null when the benchmark is null.
func Lift(m Measure, mean float64, benchmark NullFloat) NullFloat {
	if !benchmark.Valid {
		return NullFloat{}
	}
	if m == RepurchaseCycle {
		return Valid(benchmark.Float64 - mean)
	}
	return Valid(mean - benchmark.Float64)
}

// ZScore is lift divided by the population standard deviation. Null when
// lift is null or stddev is zero.
func ZScore(lift NullFloat, stddev float64) NullFloat {
	if !lift.Valid || stddev == 0 {
		return NullFloat{}
	}
	return Valid(lift.Float64 / stddev)
}

// Normalize computes lift and z-score for every metric at full precision.
// Results are ordered by lift descending as displayed at precision
// decimals, nulls last, ties broken by EntityID ascending.
func Normalize(metrics []GroupedMetric, benchmark NullFloat, m Measure, precision int) []LiftResult {
	out := make([]LiftResult, 0, len(metrics))
	for _, gm := range metrics {
		lift := Lift(m, gm.Mean, benchmark)
		out = append(out, LiftResult{
			GroupedMetric: gm,
			Lift:          lift,
			ZScore:        ZScore(lift, gm.StdDev),
		})
	}
	slices.SortFunc(out, func(a, b LiftResult) int {
		if c := compareDesc(a.Lift, b.Lift, precision); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	return out
}

// FindLift returns the lift result for an entity.
func FindLift(results []LiftResult, id int64) (LiftResult, bool) {
	i := slices.IndexFunc(results, func(r LiftResult) bool { return r.EntityID == id })
	if i < 0 {
		return LiftResult{}, false
	}
	return results[i], true
}
