//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"
	"math"
	"slices"

	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

// departmentNames seeds department labels; extra departments get generated
// category names.
var departmentNames = []string{
	"produce", "dairy eggs", "snacks", "beverages", "frozen", "pantry",
	"bakery", "canned goods", "deli", "dry goods pasta", "household",
	"meat seafood", "breakfast", "personal care", "babies", "international",
	"alcohol", "pets", "missing", "other", "bulk",
}

// Params controls the size and shape of a generated dataset.
type Params struct {
	Customers            int
	Products             int
	Departments          int
	Aisles               int
	MaxOrdersPerCustomer int
	Seed                 uint64
}

// Generator produces a reproducible synthetic snapshot. Departments carry
// their own typical repurchase cycle, products follow a long-tailed
// popularity curve and every customer keeps a small set of staples, so
// product pairs clear realistic sample floors at modest sizes.
type Generator struct {
	params Params
	faker  *Faker
}

// NewGenerator creates a generator for the given parameters.
func NewGenerator(p Params) (*Generator, error) {
	switch {
	case p.Customers < 1:
		return nil, fmt.Errorf("customers must be at least 1")
	case p.Departments < 1:
		return nil, fmt.Errorf("departments must be at least 1")
	case p.Aisles < p.Departments:
		return nil, fmt.Errorf("aisles (%d) must be >= departments (%d)", p.Aisles, p.Departments)
	case p.Products < p.Aisles:
		return nil, fmt.Errorf("products (%d) must be >= aisles (%d)", p.Products, p.Aisles)
	case p.MaxOrdersPerCustomer < 1:
		return nil, fmt.Errorf("max orders per customer must be at least 1")
	}
	return &Generator{params: p, faker: NewFakerWithSeed(p.Seed)}, nil
}

// Generate builds the snapshot.
func (g *Generator) Generate() *dataset.Snapshot {
	p := g.params
	f := g.faker
	snap := &dataset.Snapshot{}

	cycles := make(map[int64]float64, p.Departments)
	for d := 1; d <= p.Departments; d++ {
		name := ""
		if d <= len(departmentNames) {
			name = departmentNames[d-1]
		} else {
			name = fmt.Sprintf("%s %d", f.ProductCategory(), d)
		}
		snap.Departments = append(snap.Departments, dataset.Department{ID: int64(d), Name: name})
		cycles[int64(d)] = f.Float64(4, 24)
	}

	// Aisle a belongs to department (a-1)%Departments+1.
	for a := 1; a <= p.Aisles; a++ {
		snap.Aisles = append(snap.Aisles, dataset.Aisle{ID: int64(a), Name: f.AisleName()})
	}

	productIDs := make([]int64, 0, p.Products)
	popularity := make([]int, 0, p.Products)
	deptOf := make(map[int64]int64, p.Products)
	for i := 1; i <= p.Products; i++ {
		aisle := int64((i-1)%p.Aisles + 1)
		dept := (aisle-1)%int64(p.Departments) + 1
		snap.Products = append(snap.Products, dataset.Product{
			ID:           int64(i),
			Name:         f.ProductName(),
			AisleID:      aisle,
			DepartmentID: dept,
		})
		productIDs = append(productIDs, int64(i))
		deptOf[int64(i)] = dept
		// Zipf-like weight: earlier products are more popular.
		popularity = append(popularity, max(1, 1000/i))
	}
	catalog := NewWeightedPicker(productIDs, popularity)

	sizes := []int{2, 4, 6, 8, 10, 14, 20}
	sizeWeights := []int{10, 25, 25, 18, 12, 7, 3}

	var orderID int64
	for c := 1; c <= p.Customers; c++ {
		staples := make([]int64, 0, 4)
		for len(staples) < 4 && len(staples) < p.Products {
			s := catalog.Pick(f)
			if !slices.Contains(staples, s) {
				staples = append(staples, s)
			}
		}

		// The customer's rhythm follows the department of their first staple.
		cycle := cycles[deptOf[staples[0]]]

		orders := f.Int(1, p.MaxOrdersPerCustomer)
		for n := 1; n <= orders; n++ {
			orderID++
			o := dataset.Order{ID: orderID, CustomerID: int64(c), Number: n}
			if n > 1 {
				o.DaysSincePrior = dataset.Days(g.days(cycle))
			}
			snap.Orders = append(snap.Orders, o)

			size := ChooseWeighted(f, sizes, sizeWeights)
			basket := make([]int64, 0, size)
			for _, s := range staples {
				if f.Chance(0.6) {
					basket = append(basket, s)
				}
			}
			for attempts := 0; len(basket) < size && attempts < size*4; attempts++ {
				pid := catalog.Pick(f)
				if !slices.Contains(basket, pid) {
					basket = append(basket, pid)
				}
			}

			for i, pid := range basket {
				snap.Lines = append(snap.Lines, dataset.OrderLine{
					OrderID:        orderID,
					ProductID:      pid,
					AddToCartOrder: i + 1,
					Reordered:      n > 1 && slices.Contains(staples, pid),
				})
			}
		}
	}

	return snap
}

// days draws a whole number of days around the cycle, capped at 30 like the
// public order datasets it imitates.
func (g *Generator) days(cycle float64) float64 {
	f := g.faker
	// Mean of three uniforms gives a cheap bell shape.
	noise := (f.Float64(-1, 1) + f.Float64(-1, 1) + f.Float64(-1, 1)) / 3
	d := math.Round(cycle + noise*cycle*0.8)
	return math.Min(30, math.Max(0, d))
}
