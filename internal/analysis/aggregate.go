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

// GroupedMetric is the mean, population standard deviation and observation
// count of one measure for one entity.
type GroupedMetric struct {
	Grouping Grouping `json:"-"`
	Measure  Measure  `json:"-"`
	EntityID int64    `json:"id"`
	Name     string   `json:"name"`
	Mean     float64  `json:"mean"`
	StdDev   float64  `json:"stddev"`
	Count    int      `json:"sample_count"`
}

// Insufficient records an entity that had observations but fewer than the
// minimum sample.
type Insufficient struct {
	EntityID int64 `json:"id"`
	Count    int   `json:"sample_count"`
}

// GroupResult holds the qualifying metrics of one (grouping, measure)
// aggregation, ordered by EntityID, and the entities excluded for too few
// observations. Entities with no observations appear in neither list.
type GroupResult struct {
	Grouping     Grouping
	Measure      Measure
	Metrics      []GroupedMetric
	Insufficient []Insufficient
}

// Lookup returns the qualifying metric for an entity.
func (r GroupResult) Lookup(id int64) (GroupedMetric, bool) {
	i, ok := slices.BinarySearchFunc(r.Metrics, id, func(m GroupedMetric, id int64) int {
		return cmp.Compare(m.EntityID, id)
	})
	if !ok {
		return GroupedMetric{}, false
	}
	return r.Metrics[i], true
}

// IsInsufficient reports whether the entity was excluded by the sample floor.
func (r GroupResult) IsInsufficient(id int64) bool {
	return slices.ContainsFunc(r.Insufficient, func(x Insufficient) bool {
		return x.EntityID == id
	})
}

// Aggregate computes a grouped metric for every entity with at least
// opts.MinSample observations. Orders are split into fixed-size contiguous
// chunks that are aggregated concurrently and merged in chunk order, so the
// result depends neither on scheduling nor on the worker count.
func Aggregate(ctx context.Context, idx *dataset.Index, g Grouping, m Measure, opts Options) (GroupResult, error) {
	opts = opts.withDefaults()

	if g != ByProduct && g != ByDepartment {
		return GroupResult{}, fmt.Errorf("unknown grouping: %s", g)
	}
	if _, err := ParseMeasure(string(m)); err != nil {
		return GroupResult{}, err
	}

	baskets := idx.Baskets()
	parts := chunks(len(baskets), chunkSize)
	partials := make([]map[int64]*accumulator, len(parts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for i, part := range parts {
		eg.Go(func() error {
			local := make(map[int64]*accumulator)
			var buf []int64
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, b := range baskets[part[0]:part[1]] {
				value, ok := observation(b, m)
				if !ok {
					continue
				}
				buf = entityKeys(idx, b, g, m, buf)
				for _, k := range buf {
					acc, ok := local[k]
					if !ok {
						acc = &accumulator{}
						local[k] = acc
					}
					acc.add(value)
				}
			}
			partials[i] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return GroupResult{}, fmt.Errorf("aggregate %s by %s: %w", m, g, err)
	}

	merged := make(map[int64]*accumulator)
	for _, local := range partials {
		for k, acc := range local {
			total, ok := merged[k]
			if !ok {
				total = &accumulator{}
				merged[k] = total
			}
			total.merge(*acc)
		}
	}

	ids := make([]int64, 0, len(merged))
	for k := range merged {
		ids = append(ids, k)
	}
	slices.Sort(ids)

	res := GroupResult{Grouping: g, Measure: m}
	for _, id := range ids {
		acc := merged[id]
		if acc.n < opts.MinSample {
			res.Insufficient = append(res.Insufficient, Insufficient{EntityID: id, Count: acc.n})
			continue
		}
		res.Metrics = append(res.Metrics, GroupedMetric{
			Grouping: g,
			Measure:  m,
			EntityID: id,
			Name:     entityName(idx, g, id),
			Mean:     acc.mean(),
			StdDev:   acc.stddev(),
			Count:    acc.n,
		})
	}
	return res, nil
}

// observation returns the value an order contributes to every entity it
// contains, or false when the order carries no observation for m.
func observation(b dataset.Basket, m Measure) (float64, bool) {
	if b.Size() == 0 {
		return 0, false
	}
	switch m {
	case RepurchaseCycle:
		if b.DaysSincePrior == nil {
			return 0, false
		}
		return *b.DaysSincePrior, true
	case OrderSize:
		return float64(b.Size()), true
	}
	return 0, false
}

// entityKeys lists the entities an order's observation is attributed to.
// Repurchase events are per product, so a department receives one event
// for every distinct product of its own in the order. Order size counts
// once per distinct department.
func entityKeys(idx *dataset.Index, b dataset.Basket, g Grouping, m Measure, buf []int64) []int64 {
	buf = buf[:0]
	switch {
	case g == ByProduct:
		return append(buf, b.Products...)
	case m == RepurchaseCycle:
		for _, pid := range b.Products {
			p, _ := idx.Product(pid)
			buf = append(buf, p.DepartmentID)
		}
		return buf
	}
	return append(buf, b.Departments...)
}

func entityName(idx *dataset.Index, g Grouping, id int64) string {
	if g == ByDepartment {
		return idx.DepartmentName(id)
	}
	return idx.ProductName(id)
}
