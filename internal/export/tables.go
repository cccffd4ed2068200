//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package export

import (
	"strconv"

	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
)

// Table is one flat result set. Nulls are empty cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Tables flattens every result set, formatting statistics to precision
// decimals. Table names match the result tables in the database.
func Tables(res *analysis.Results, precision int) []Table {
	f := formatter{precision: precision}

	tables := make([]Table, 0, 7)
	for _, set := range res.Sets() {
		tables = append(tables, f.metricTable(set))
	}
	return append(tables,
		f.coPurchaseTable(res.CoPurchase),
		f.assembledTable(res.Assembled),
		f.benchmarkTable(res.Benchmarks()),
	)
}

type formatter struct {
	precision int
}

func (f formatter) float(v float64) string {
	return analysis.Valid(v).Format(f.precision)
}

func (f formatter) null(v analysis.NullFloat) string {
	return v.Format(f.precision)
}

func itoa[T ~int | ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func (f formatter) metricTable(set analysis.MetricSet) Table {
	g := string(set.Grouping)
	t := Table{
		Name:   g + "_" + string(set.Measure),
		Header: []string{g + "_id", g + "_name", "mean", "stddev", "lift", "zscore", "sample_count"},
		Rows:   make([][]string, 0, len(set.Results)),
	}
	for _, r := range set.Results {
		t.Rows = append(t.Rows, []string{
			itoa(r.EntityID), r.Name, f.float(r.Mean), f.float(r.StdDev),
			f.null(r.Lift), f.null(r.ZScore), itoa(r.Count),
		})
	}
	return t
}

func (f formatter) coPurchaseTable(rows []analysis.CoPurchaseRow) Table {
	t := Table{
		Name: "copurchase",
		Header: []string{
			"anchor_id", "anchor_name", "co_product_id", "co_product_name",
			"pair_count", "anchor_total_orders", "anchor_percentage",
		},
		Rows: make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			itoa(r.AnchorID), r.AnchorName, itoa(r.CoProductID), r.CoProductName,
			itoa(r.PairCount), strconv.FormatUint(r.AnchorTotalOrders, 10), f.null(r.AnchorPercentage),
		})
	}
	return t
}

func (f formatter) assembledTable(rows []analysis.AssembledRow) Table {
	t := Table{
		Name: "copurchase_export",
		Header: []string{
			"anchor_id", "anchor_name", "anchor_department", "anchor_aisle",
			"co_product_id", "co_product_name", "co_product_department", "co_product_aisle",
			"pair_count", "anchor_total_orders", "anchor_percentage",
			"repurchase_available", "repurchase_mean", "repurchase_lift", "repurchase_zscore",
			"order_size_available", "order_size_mean", "order_size_lift", "order_size_zscore",
		},
		Rows: make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			itoa(r.AnchorID), r.AnchorName, r.AnchorDepartment, r.AnchorAisle,
			itoa(r.CoProductID), r.CoProductName, r.CoProductDepartment, r.CoProductAisle,
			itoa(r.PairCount), strconv.FormatUint(r.AnchorTotalOrders, 10), f.null(r.AnchorPercentage),
			strconv.FormatBool(r.Repurchase.Available),
			f.null(r.Repurchase.Mean), f.null(r.Repurchase.Lift), f.null(r.Repurchase.ZScore),
			strconv.FormatBool(r.OrderSize.Available),
			f.null(r.OrderSize.Mean), f.null(r.OrderSize.Lift), f.null(r.OrderSize.ZScore),
		})
	}
	return t
}

func (f formatter) benchmarkTable(benchmarks []analysis.Benchmark) Table {
	t := Table{
		Name:   "benchmarks",
		Header: []string{"measure", "value", "live_value", "observations", "pinned"},
		Rows:   make([][]string, 0, len(benchmarks)),
	}
	for _, b := range benchmarks {
		t.Rows = append(t.Rows, []string{
			string(b.Measure), f.null(b.Value), f.null(b.Live), itoa(b.Observations), strconv.FormatBool(b.Pinned),
		})
	}
	return t
}
