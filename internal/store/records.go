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
	"github.com/pgEdge/pgedge-basketinsights/internal/analysis"
)

// metricTables maps each grouped result set to its table.
var metricTables = []struct {
	table    string
	grouping analysis.Grouping
	measure  analysis.Measure
}{
	{TableProductRepurchase, analysis.ByProduct, analysis.RepurchaseCycle},
	{TableProductOrderSize, analysis.ByProduct, analysis.OrderSize},
	{TableDepartmentRepurchase, analysis.ByDepartment, analysis.RepurchaseCycle},
	{TableDepartmentOrderSize, analysis.ByDepartment, analysis.OrderSize},
}

// ResultTables lists every result table in write order.
func ResultTables() []string {
	tables := make([]string, 0, len(metricTables)+3)
	for _, mt := range metricTables {
		tables = append(tables, mt.table)
	}
	return append(tables, TableCoPurchase, TableCoPurchaseExport, TableBenchmarks)
}

// Column lists shared by both backends.
var (
	coPurchaseColumns = []string{
		"anchor_id", "anchor_name", "co_product_id", "co_product_name",
		"pair_count", "anchor_total_orders", "anchor_percentage",
	}
	exportColumns = []string{
		"anchor_id", "anchor_name", "anchor_department", "anchor_aisle",
		"co_product_id", "co_product_name", "co_product_department", "co_product_aisle",
		"pair_count", "anchor_total_orders", "anchor_percentage",
		"repurchase_available", "repurchase_mean", "repurchase_lift", "repurchase_zscore",
		"order_size_available", "order_size_mean", "order_size_lift", "order_size_zscore",
	}
	benchmarkColumns = []string{
		"measure", "value", "live_value", "observations", "pinned",
	}
)

// metricColumns names the id and name columns after the grouping, as in
// product_id and department_name.
func metricColumns(g analysis.Grouping) []string {
	return []string{
		string(g) + "_id", string(g) + "_name", "mean", "stddev", "lift", "zscore", "sample_count",
	}
}

func nullable(n analysis.NullFloat) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func metricValues(r analysis.LiftResult) []any {
	return []any{
		r.EntityID, r.Name, r.Mean, r.StdDev, nullable(r.Lift), nullable(r.ZScore), r.Count,
	}
}

func coPurchaseValues(r analysis.CoPurchaseRow) []any {
	return []any{
		r.AnchorID, r.AnchorName, r.CoProductID, r.CoProductName,
		r.PairCount, int64(r.AnchorTotalOrders), nullable(r.AnchorPercentage),
	}
}

func exportValues(r analysis.AssembledRow) []any {
	return []any{
		r.AnchorID, r.AnchorName, r.AnchorDepartment, r.AnchorAisle,
		r.CoProductID, r.CoProductName, r.CoProductDepartment, r.CoProductAisle,
		r.PairCount, int64(r.AnchorTotalOrders), nullable(r.AnchorPercentage),
		r.Repurchase.Available, nullable(r.Repurchase.Mean), nullable(r.Repurchase.Lift), nullable(r.Repurchase.ZScore),
		r.OrderSize.Available, nullable(r.OrderSize.Mean), nullable(r.OrderSize.Lift), nullable(r.OrderSize.ZScore),
	}
}

func benchmarkValues(b analysis.Benchmark) []any {
	return []any{
		string(b.Measure), nullable(b.Value), nullable(b.Live), b.Observations, b.Pinned,
	}
}
