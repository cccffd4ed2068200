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
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

// PairKey is an unordered product pair stored with Low < High.
type PairKey struct {
	Low  int64
	High int64
}

// CanonicalPair orders a and b into a PairKey. It reports false for a
// self-pair.
func CanonicalPair(a, b int64) (PairKey, bool) {
	switch {
	case a < b:
		return PairKey{Low: a, High: b}, true
	case a > b:
		return PairKey{Low: b, High: a}, true
	}
	return PairKey{}, false
}

// PairCount looks up the co-occurrence count of a and b in either order.
func PairCount(counts map[PairKey]int, a, b int64) (int, bool) {
	key, ok := CanonicalPair(a, b)
	if !ok {
		return 0, false
	}
	n, ok := counts[key]
	return n, ok
}

// PairCounts counts, for every unordered product pair, the number of orders
// containing both. Pairs are enumerated within each order only, so the cost
// follows the sum of squared basket sizes. Pairs below opts.MinSample are
// dropped.
func PairCounts(ctx context.Context, idx *dataset.Index, opts Options) (map[PairKey]int, error) {
	opts = opts.withDefaults()

	baskets := idx.Baskets()
	parts := chunks(len(baskets), chunkSize)
	partials := make([]map[PairKey]int, len(parts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for i, part := range parts {
		eg.Go(func() error {
			local := make(map[PairKey]int)
			for j, b := range baskets[part[0]:part[1]] {
				if j%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				// Products are distinct and ascending, so (p[x], p[y]) with
				// x < y is already canonical.
				p := b.Products
				for x := 0; x < len(p); x++ {
					for y := x + 1; y < len(p); y++ {
						local[PairKey{Low: p[x], High: p[y]}]++
					}
				}
			}
			partials[i] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("count pairs: %w", err)
	}

	counts := make(map[PairKey]int)
	for _, local := range partials {
		for k, n := range local {
			counts[k] += n
		}
	}
	for k, n := range counts {
		if n < opts.MinSample {
			delete(counts, k)
		}
	}
	return counts, nil
}

// AnchorTotal is the number of distinct orders containing the anchor.
func AnchorTotal(idx *dataset.Index, anchor int64) uint64 {
	return idx.OrderCount(anchor)
}

// AnchorPercentage is the share of the anchor's orders that also contain
// the co-product, as a percentage. It is directional: the denominator is
// always the anchor's order total. Null when the anchor has no orders.
func AnchorPercentage(idx *dataset.Index, anchor, co int64) NullFloat {
	total := idx.OrderCount(anchor)
	if total == 0 {
		return NullFloat{}
	}
	return Valid(100 * float64(idx.CoOrderCount(anchor, co)) / float64(total))
}

// CoPurchaseRow is a retained pair viewed from one of its members.
type CoPurchaseRow struct {
	AnchorID          int64     `json:"anchor_id"`
	AnchorName        string    `json:"anchor_name"`
	CoProductID       int64     `json:"co_product_id"`
	CoProductName     string    `json:"co_product_name"`
	PairCount         int       `json:"pair_count"`
	AnchorTotalOrders uint64    `json:"anchor_total_orders"`
	AnchorPercentage  NullFloat `json:"anchor_percentage"`
}

// Rows expands every retained pair into two directional rows, one per
// anchor, ordered by anchor percentage descending, then anchor id and
// co-product id ascending. Percentages are compared as displayed, rounded
// to precision decimals, so rows that print the same value fall back to
// the id order.
func Rows(idx *dataset.Index, counts map[PairKey]int, precision int) []CoPurchaseRow {
	rows := make([]CoPurchaseRow, 0, 2*len(counts))
	for key, n := range counts {
		rows = append(rows,
			newRow(idx, key.Low, key.High, n),
			newRow(idx, key.High, key.Low, n),
		)
	}
	slices.SortFunc(rows, rowOrder(precision))
	return rows
}

func newRow(idx *dataset.Index, anchor, co int64, n int) CoPurchaseRow {
	return CoPurchaseRow{
		AnchorID:          anchor,
		AnchorName:        idx.ProductName(anchor),
		CoProductID:       co,
		CoProductName:     idx.ProductName(co),
		PairCount:         n,
		AnchorTotalOrders: AnchorTotal(idx, anchor),
		AnchorPercentage:  AnchorPercentage(idx, anchor, co),
	}
}

func rowOrder(precision int) func(a, b CoPurchaseRow) int {
	return func(a, b CoPurchaseRow) int {
		if c := compareDesc(a.AnchorPercentage, b.AnchorPercentage, precision); c != 0 {
			return c
		}
		if c := cmp.Compare(a.AnchorID, b.AnchorID); c != 0 {
			return c
		}
		return cmp.Compare(a.CoProductID, b.CoProductID)
	}
}

// compareDesc orders values descending after rounding, with nulls last.
func compareDesc(a, b NullFloat, precision int) int {
	switch {
	case a.Valid && !b.Valid:
		return -1
	case !a.Valid && b.Valid:
		return 1
	case !a.Valid:
		return 0
	}
	return cmp.Compare(Round(b.Float64, precision), Round(a.Float64, precision))
}
