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
	"slices"

	"github.com/pgEdge/pgedge-basketinsights/internal/dataset"
)

// Builder assembles small hand-specified snapshots. Order ids are assigned
// sequentially from 1.
type Builder struct {
	departments []dataset.Department
	aisles      []dataset.Aisle
	products    []dataset.Product
	orders      []dataset.Order
	lines       []dataset.OrderLine

	knownDepartments map[int64]bool
	knownAisles      map[int64]bool
	sequence         map[int64]int
	nextOrder        int64
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		knownDepartments: make(map[int64]bool),
		knownAisles:      make(map[int64]bool),
		sequence:         make(map[int64]int),
		nextOrder:        1,
	}
}

// Department adds a department.
func (b *Builder) Department(id int64, name string) *Builder {
	if !b.knownDepartments[id] {
		b.knownDepartments[id] = true
		b.departments = append(b.departments, dataset.Department{ID: id, Name: name})
	}
	return b
}

// Aisle adds an aisle.
func (b *Builder) Aisle(id int64, name string) *Builder {
	if !b.knownAisles[id] {
		b.knownAisles[id] = true
		b.aisles = append(b.aisles, dataset.Aisle{ID: id, Name: name})
	}
	return b
}

// Product adds a product, creating its department and aisle with generated
// names if they have not been added.
func (b *Builder) Product(id int64, name string, departmentID, aisleID int64) *Builder {
	b.Department(departmentID, fmt.Sprintf("department %d", departmentID))
	b.Aisle(aisleID, fmt.Sprintf("aisle %d", aisleID))
	b.products = append(b.products, dataset.Product{
		ID:           id,
		Name:         name,
		AisleID:      aisleID,
		DepartmentID: departmentID,
	})
	return b
}

// Order adds one order for the customer and returns its id. days is nil
// for a first order.
func (b *Builder) Order(customerID int64, days *float64, products ...int64) int64 {
	id := b.nextOrder
	b.nextOrder++
	b.sequence[customerID]++
	b.orders = append(b.orders, dataset.Order{
		ID:             id,
		CustomerID:     customerID,
		Number:         b.sequence[customerID],
		DaysSincePrior: days,
	})
	for i, p := range products {
		b.lines = append(b.lines, dataset.OrderLine{
			OrderID:        id,
			ProductID:      p,
			AddToCartOrder: i + 1,
		})
	}
	return id
}

// Orders adds n identical orders for the customer.
func (b *Builder) Orders(n int, customerID int64, days *float64, products ...int64) *Builder {
	for i := 0; i < n; i++ {
		b.Order(customerID, days, products...)
	}
	return b
}

// Snapshot returns a snapshot holding copies of everything added so far.
func (b *Builder) Snapshot() *dataset.Snapshot {
	return &dataset.Snapshot{
		Orders:      slices.Clone(b.orders),
		Lines:       slices.Clone(b.lines),
		Products:    slices.Clone(b.products),
		Departments: slices.Clone(b.departments),
		Aisles:      slices.Clone(b.aisles),
	}
}
