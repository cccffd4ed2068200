//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen generates synthetic basket datasets for seeding and tests.
package datagen

import (
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Faker provides fake data generation using gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a new Faker with a random seed.
func NewFaker() *Faker {
	return &Faker{
		faker: gofakeit.New(uint64(time.Now().UnixNano())),
	}
}

// NewFakerWithSeed creates a new Faker with a specific seed for reproducibility.
func NewFakerWithSeed(seed uint64) *Faker {
	return &Faker{
		faker: gofakeit.New(seed),
	}
}

// ProductName generates a random product name.
func (f *Faker) ProductName() string {
	return f.faker.ProductName()
}

// ProductCategory generates a random product category.
func (f *Faker) ProductCategory() string {
	return f.faker.ProductCategory()
}

// AisleName generates a lower-case two word aisle label.
func (f *Faker) AisleName() string {
	return strings.ToLower(f.faker.Adjective() + " " + f.faker.Noun())
}

// Int generates a random integer between min and max (inclusive).
func (f *Faker) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}

// Float64 generates a random float64 between min and max.
func (f *Faker) Float64(min, max float64) float64 {
	return f.faker.Float64Range(min, max)
}

// Chance returns true with probability p.
func (f *Faker) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}

// Choose returns a random element from the given slice.
func Choose[T any](f *Faker, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[f.Int(0, len(items)-1)]
}

// ChooseWeighted returns a random element based on weights.
func ChooseWeighted[T any](f *Faker, items []T, weights []int) T {
	if len(items) == 0 || len(weights) == 0 {
		var zero T
		return zero
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	r := f.Int(1, totalWeight)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return items[i]
		}
	}

	return items[len(items)-1]
}

// WeightedPicker draws from a fixed weighted population in O(log n).
type WeightedPicker[T any] struct {
	items      []T
	cumulative []int
}

// NewWeightedPicker precomputes cumulative weights. Non-positive weights
// are never drawn.
func NewWeightedPicker[T any](items []T, weights []int) *WeightedPicker[T] {
	p := &WeightedPicker[T]{}
	total := 0
	for i, w := range weights {
		if w <= 0 || i >= len(items) {
			continue
		}
		total += w
		p.items = append(p.items, items[i])
		p.cumulative = append(p.cumulative, total)
	}
	return p
}

// Pick draws one item.
func (p *WeightedPicker[T]) Pick(f *Faker) T {
	if len(p.items) == 0 {
		var zero T
		return zero
	}
	r := f.Int(1, p.cumulative[len(p.cumulative)-1])
	i := sort.SearchInts(p.cumulative, r)
	return p.items[i]
}
