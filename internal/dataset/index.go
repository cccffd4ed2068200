//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dataset

import (
	"cmp"
	"slices"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// Basket is one order with its lines collapsed to distinct products.
type Basket struct {
	OrderID        int64
	DaysSincePrior *float64

	// Products holds distinct product ids, ascending.
	Products []int64

	// Departments holds the distinct departments of Products, ascending.
	Departments []int64
}

// Size is the order's distinct-product count.
func (b Basket) Size() int {
	return len(b.Products)
}

// Index is the memoized basket view of a Snapshot. It is immutable and safe
// for concurrent readers.
type Index struct {
	baskets       []Basket
	products      map[int64]Product
	departments   map[int64]string
	aisles        map[int64]string
	productOrders map[int64]*roaring64.Bitmap
	productIDs    []int64
	departmentIDs []int64
	lines         int
}

func buildIndex(s *Snapshot) *Index {
	idx := &Index{
		products:      make(map[int64]Product, len(s.Products)),
		departments:   make(map[int64]string, len(s.Departments)),
		aisles:        make(map[int64]string, len(s.Aisles)),
		productOrders: make(map[int64]*roaring64.Bitmap),
		lines:         len(s.Lines),
	}

	for _, p := range s.Products {
		idx.products[p.ID] = p
		idx.productIDs = append(idx.productIDs, p.ID)
	}
	slices.Sort(idx.productIDs)

	for _, d := range s.Departments {
		idx.departments[d.ID] = d.Name
		idx.departmentIDs = append(idx.departmentIDs, d.ID)
	}
	slices.Sort(idx.departmentIDs)

	for _, a := range s.Aisles {
		idx.aisles[a.ID] = a.Name
	}

	byOrder := make(map[int64][]int64, len(s.Orders))
	for _, l := range s.Lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l.ProductID)
	}

	idx.baskets = make([]Basket, 0, len(s.Orders))
	for _, o := range s.Orders {
		products := byOrder[o.ID]
		slices.Sort(products)
		products = slices.Compact(products)

		var departments []int64
		for _, pid := range products {
			departments = append(departments, idx.products[pid].DepartmentID)
			bm, ok := idx.productOrders[pid]
			if !ok {
				bm = roaring64.New()
				idx.productOrders[pid] = bm
			}
			bm.Add(uint64(o.ID))
		}
		slices.Sort(departments)
		departments = slices.Compact(departments)

		idx.baskets = append(idx.baskets, Basket{
			OrderID:        o.ID,
			DaysSincePrior: o.DaysSincePrior,
			Products:       products,
			Departments:    departments,
		})
	}
	slices.SortFunc(idx.baskets, func(a, b Basket) int {
		return cmp.Compare(a.OrderID, b.OrderID)
	})

	for _, bm := range idx.productOrders {
		bm.RunOptimize()
	}

	return idx
}

// Baskets returns every order, ascending by order id. Orders without lines
// are included with an empty product list.
func (x *Index) Baskets() []Basket {
	return x.baskets
}

// LineCount is the number of raw order lines, before de-duplication.
func (x *Index) LineCount() int {
	return x.lines
}

// Product looks up a product by id.
func (x *Index) Product(id int64) (Product, bool) {
	p, ok := x.products[id]
	return p, ok
}

// ProductIDs returns all product ids, ascending.
func (x *Index) ProductIDs() []int64 {
	return x.productIDs
}

// DepartmentIDs returns all department ids, ascending.
func (x *Index) DepartmentIDs() []int64 {
	return x.departmentIDs
}

// ProductName returns the product's display name, or "" if unknown.
func (x *Index) ProductName(id int64) string {
	return x.products[id].Name
}

// DepartmentName returns the department's display name, or "" if unknown.
func (x *Index) DepartmentName(id int64) string {
	return x.departments[id]
}

// AisleName returns the aisle's display name, or "" if unknown.
func (x *Index) AisleName(id int64) string {
	return x.aisles[id]
}

// OrderCount returns the number of distinct orders containing the product.
func (x *Index) OrderCount(id int64) uint64 {
	bm := x.productOrders[id]
	if bm == nil {
		return 0
	}
	return bm.GetCardinality()
}

// CoOrderCount returns the number of distinct orders containing both
// products.
func (x *Index) CoOrderCount(a, b int64) uint64 {
	ba, bb := x.productOrders[a], x.productOrders[b]
	if ba == nil || bb == nil {
		return 0
	}
	return roaring64.And(ba, bb).GetCardinality()
}
