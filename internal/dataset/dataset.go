//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package dataset holds the base relations a run reads: orders, order
// lines, products, aisles and departments. A Snapshot is read-only once it
// has been handed to the analysis engine.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrMalformedSnapshot is returned when the base relations are structurally
// inconsistent (dangling references, duplicate keys, invalid values).
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Order is one customer order.
type Order struct {
	ID         int64
	CustomerID int64

	// Number is the order's sequence number within the customer's history.
	Number int

	// DaysSincePrior is nil for the customer's first order.
	DaysSincePrior *float64
}

// OrderLine is one product placed in an order. Lines are not guaranteed
// unique per (order, product); consumers de-duplicate.
type OrderLine struct {
	OrderID        int64
	ProductID      int64
	AddToCartOrder int
	Reordered      bool
}

// Product is a catalog entry.
type Product struct {
	ID           int64
	Name         string
	AisleID      int64
	DepartmentID int64
}

// Department is a lookup dimension.
type Department struct {
	ID   int64
	Name string
}

// Aisle is a lookup dimension.
type Aisle struct {
	ID   int64
	Name string
}

// Snapshot is the full set of base relations for one run.
type Snapshot struct {
	Orders      []Order
	Lines       []OrderLine
	Products    []Product
	Departments []Department
	Aisles      []Aisle

	once   sync.Once
	index  *Index
	idxErr error
}

// Days is a convenience for building a non-nil DaysSincePrior.
func Days(v float64) *float64 {
	return &v
}

// Validate checks referential integrity and value ranges. Aisle references
// are only checked when the snapshot carries aisles.
func (s *Snapshot) Validate() error {
	departments := make(map[int64]struct{}, len(s.Departments))
	for _, d := range s.Departments {
		if d.ID <= 0 {
			return malformed("department has non-positive id %d", d.ID)
		}
		if _, dup := departments[d.ID]; dup {
			return malformed("duplicate department id %d", d.ID)
		}
		departments[d.ID] = struct{}{}
	}

	aisles := make(map[int64]struct{}, len(s.Aisles))
	for _, a := range s.Aisles {
		if a.ID <= 0 {
			return malformed("aisle has non-positive id %d", a.ID)
		}
		if _, dup := aisles[a.ID]; dup {
			return malformed("duplicate aisle id %d", a.ID)
		}
		aisles[a.ID] = struct{}{}
	}

	products := make(map[int64]struct{}, len(s.Products))
	for _, p := range s.Products {
		if p.ID <= 0 {
			return malformed("product has non-positive id %d", p.ID)
		}
		if _, dup := products[p.ID]; dup {
			return malformed("duplicate product id %d", p.ID)
		}
		if _, ok := departments[p.DepartmentID]; !ok {
			return malformed("product %d references unknown department %d", p.ID, p.DepartmentID)
		}
		if len(s.Aisles) > 0 {
			if _, ok := aisles[p.AisleID]; !ok {
				return malformed("product %d references unknown aisle %d", p.ID, p.AisleID)
			}
		}
		products[p.ID] = struct{}{}
	}

	orders := make(map[int64]struct{}, len(s.Orders))
	for _, o := range s.Orders {
		if o.ID <= 0 {
			return malformed("order has non-positive id %d", o.ID)
		}
		if _, dup := orders[o.ID]; dup {
			return malformed("duplicate order id %d", o.ID)
		}
		if d := o.DaysSincePrior; d != nil {
			if math.IsNaN(*d) || math.IsInf(*d, 0) || *d < 0 {
				return malformed("order %d has invalid days_since_prior %v", o.ID, *d)
			}
		}
		orders[o.ID] = struct{}{}
	}

	for _, l := range s.Lines {
		if _, ok := orders[l.OrderID]; !ok {
			return malformed("order line references unknown order %d", l.OrderID)
		}
		if _, ok := products[l.ProductID]; !ok {
			return malformed("order line in order %d references unknown product %d", l.OrderID, l.ProductID)
		}
	}

	return nil
}

// Index validates the snapshot and returns its basket index. The index is
// built once and reused by every caller; build a new Snapshot to recompute.
func (s *Snapshot) Index() (*Index, error) {
	s.once.Do(func() {
		if err := s.Validate(); err != nil {
			s.idxErr = err
			return
		}
		s.index = buildIndex(s)
	})
	return s.index, s.idxErr
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSnapshot, fmt.Sprintf(format, args...))
}
