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
	"testing"
)

func TestNewFaker(t *testing.T) {
	f := NewFaker()
	if f == nil {
		t.Fatal("NewFaker returned nil")
	}
	if f.faker == nil {
		t.Fatal("faker field is nil")
	}
}

func TestNewFakerWithSeed(t *testing.T) {
	seed := uint64(12345)
	f1 := NewFakerWithSeed(seed)
	f2 := NewFakerWithSeed(seed)

	// Same seed should produce same sequence
	for i := 0; i < 10; i++ {
		v1 := f1.Int(0, 1000)
		v2 := f2.Int(0, 1000)
		if v1 != v2 {
			t.Errorf("Same seed produced different values: %d != %d", v1, v2)
		}
	}
	if f1.ProductName() != f2.ProductName() {
		t.Error("Same seed produced different product names")
	}
}

func TestFakerNames(t *testing.T) {
	f := NewFakerWithSeed(1)
	if f.ProductName() == "" {
		t.Error("ProductName returned empty string")
	}
	if f.ProductCategory() == "" {
		t.Error("ProductCategory returned empty string")
	}
	if f.AisleName() == "" {
		t.Error("AisleName returned empty string")
	}
}

func TestFakerInt(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		v := f.Int(10, 20)
		if v < 10 || v > 20 {
			t.Errorf("Int(10, 20) returned %d, out of range", v)
		}
	}
}

func TestFakerFloat64(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		v := f.Float64(1.5, 2.5)
		if v < 1.5 || v > 2.5 {
			t.Errorf("Float64(1.5, 2.5) returned %f, out of range", v)
		}
	}
}

func TestFakerChance(t *testing.T) {
	f := NewFakerWithSeed(7)
	for i := 0; i < 100; i++ {
		if f.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
	}
	hits := 0
	for i := 0; i < 1000; i++ {
		if f.Chance(0.9) {
			hits++
		}
	}
	if hits < 800 {
		t.Errorf("Chance(0.9) hit %d of 1000", hits)
	}
}

func TestChoose(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c"}

	for i := 0; i < 100; i++ {
		chosen := Choose(f, items)
		if chosen != "a" && chosen != "b" && chosen != "c" {
			t.Errorf("Choose returned unexpected value: %s", chosen)
		}
	}
}

func TestChooseEmpty(t *testing.T) {
	f := NewFaker()
	var items []string

	chosen := Choose(f, items)
	if chosen != "" {
		t.Errorf("Choose on empty slice should return zero value, got: %s", chosen)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c"}
	weights := []int{1, 2, 7} // c should be chosen ~70% of the time

	counts := make(map[string]int)
	iterations := 1000

	for i := 0; i < iterations; i++ {
		chosen := ChooseWeighted(f, items, weights)
		counts[chosen]++
	}

	// c should be most common
	if counts["c"] < counts["a"] || counts["c"] < counts["b"] {
		t.Errorf("Weighted choice distribution unexpected: %v", counts)
	}
}

func TestChooseWeightedEmpty(t *testing.T) {
	f := NewFaker()
	var items []string
	var weights []int

	chosen := ChooseWeighted(f, items, weights)
	if chosen != "" {
		t.Errorf("ChooseWeighted on empty slices should return zero value, got: %s", chosen)
	}
}

func TestWeightedPicker(t *testing.T) {
	f := NewFakerWithSeed(99)
	p := NewWeightedPicker([]int64{1, 2, 3}, []int{0, 1, 9})

	counts := make(map[int64]int)
	for i := 0; i < 1000; i++ {
		counts[p.Pick(f)]++
	}

	if counts[1] != 0 {
		t.Errorf("Zero-weight item was drawn %d times", counts[1])
	}
	if counts[3] < counts[2] {
		t.Errorf("Weighted pick distribution unexpected: %v", counts)
	}
}

func TestWeightedPickerEmpty(t *testing.T) {
	f := NewFaker()
	p := NewWeightedPicker[int64](nil, nil)
	if v := p.Pick(f); v != 0 {
		t.Errorf("Pick on empty picker should return zero value, got: %d", v)
	}
}
