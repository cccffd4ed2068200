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
	"slices"

	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

// AnchorMetrics is the part of an anchor's lift result carried into the
// assembled export.
type AnchorMetrics struct {
	Available bool      `json:"available"`
	Mean      NullFloat `json:"mean"`
	Lift      NullFloat `json:"lift"`
	ZScore    NullFloat `json:"zscore"`
}

// AssembledRow is one directional co-purchase row joined with the anchor's
// metrics and the dimension names of both products.
type AssembledRow struct {
	AnchorID         int64  `json:"anchor_id"`
	AnchorName       string `json:"anchor_name"`
	AnchorDepartment string `json:"anchor_department"`
	AnchorAisle      string `json:"anchor_aisle"`

	CoProductID         int64  `json:"co_product_id"`
	CoProductName       string `json:"co_product_name"`
	CoProductDepartment string `json:"co_product_department"`
	CoProductAisle      string `json:"co_product_aisle"`

	PairCount         int       `json:"pair_count"`
	AnchorTotalOrders uint64    `json:"anchor_total_orders"`
	AnchorPercentage  NullFloat `json:"anchor_percentage"`

	Repurchase AnchorMetrics `json:"repurchase_cycle"`
	OrderSize  AnchorMetrics `json:"order_size"`
}

// Assemble joins co-purchase rows with the anchors' product-level lift
// results. An anchor that failed the sample floor for a measure keeps its
// rows, with that measure marked unavailable and its values null. Rows are
// ordered like Rows.
func Assemble(idx *dataset.Index, rows []CoPurchaseRow, repurchase, orderSize []LiftResult, precision int) []AssembledRow {
	rc := liftsByID(repurchase)
	sz := liftsByID(orderSize)

	out := make([]AssembledRow, 0, len(rows))
	for _, r := range rows {
		anchor, _ := idx.Product(r.AnchorID)
		co, _ := idx.Product(r.CoProductID)
		out = append(out, AssembledRow{
			AnchorID:            r.AnchorID,
			AnchorName:          anchor.Name,
			AnchorDepartment:    idx.DepartmentName(anchor.DepartmentID),
			AnchorAisle:         idx.AisleName(anchor.AisleID),
			CoProductID:         r.CoProductID,
			CoProductName:       co.Name,
			CoProductDepartment: idx.DepartmentName(co.DepartmentID),
			CoProductAisle:      idx.AisleName(co.AisleID),
			PairCount:           r.PairCount,
			AnchorTotalOrders:   r.AnchorTotalOrders,
			AnchorPercentage:    r.AnchorPercentage,
			Repurchase:          anchorMetrics(rc, r.AnchorID),
			OrderSize:           anchorMetrics(sz, r.AnchorID),
		})
	}
	order := rowOrder(precision)
	slices.SortFunc(out, func(a, b AssembledRow) int {
		return order(
			CoPurchaseRow{AnchorID: a.AnchorID, CoProductID: a.CoProductID, AnchorPercentage: a.AnchorPercentage},
			CoPurchaseRow{AnchorID: b.AnchorID, CoProductID: b.CoProductID, AnchorPercentage: b.AnchorPercentage},
		)
	})
	return out
}

func liftsByID(results []LiftResult) map[int64]LiftResult {
	m := make(map[int64]LiftResult, len(results))
	for _, r := range results {
		m[r.EntityID] = r
	}
	return m
}

func anchorMetrics(results map[int64]LiftResult, id int64) AnchorMetrics {
	r, ok := results[id]
	if !ok {
		return AnchorMetrics{}
	}
	return AnchorMetrics{
		Available: true,
		Mean:      Valid(r.Mean),
		Lift:      r.Lift,
		ZScore:    r.ZScore,
	}
}
