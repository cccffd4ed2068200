//-------------------------------------------------------------------------
//
// pgEdge Basket Insights
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package analysis

import "math"

// chunkSize is the number of orders per aggregation chunk. Chunk bounds
// depend only on the input, never on the worker count.
const chunkSize = 4096

// accumulator tracks count, a compensated sum and the sum of squared
// deviations. The mean is sum/n; the running Welford mean only feeds m2.
// Partials over disjoint inputs merge with Chan's update.
type accumulator struct {
	n    int
	sum  float64
	comp float64
	wm   float64
	m2   float64
}

func (a *accumulator) add(x float64) {
	a.n++
	a.addSum(x)
	delta := x - a.wm
	a.wm += delta / float64(a.n)
	a.m2 += delta * (x - a.wm)
}

// addSum is Neumaier summation: comp carries the low-order bits lost by sum.
func (a *accumulator) addSum(x float64) {
	t := a.sum + x
	if math.Abs(a.sum) >= math.Abs(x) {
		a.comp += (a.sum - t) + x
	} else {
		a.comp += (x - t) + a.sum
	}
	a.sum = t
}

func (a *accumulator) merge(b accumulator) {
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		*a = b
		return
	}
	n := a.n + b.n
	a.addSum(b.sum)
	a.comp += b.comp
	delta := b.wm - a.wm
	a.wm += delta * float64(b.n) / float64(n)
	a.m2 += b.m2 + delta*delta*float64(a.n)*float64(b.n)/float64(n)
	a.n = n
}

// mean is the arithmetic mean, or 0 with no observations.
func (a accumulator) mean() float64 {
	if a.n == 0 {
		return 0
	}
	return (a.sum + a.comp) / float64(a.n)
}

// stddev is the population standard deviation.
func (a accumulator) stddev() float64 {
	if a.n == 0 || a.m2 <= 0 {
		return 0
	}
	return math.Sqrt(a.m2 / float64(a.n))
}

// chunks splits n items into contiguous [start, end) ranges of at most size
// items.
func chunks(n, size int) [][2]int {
	if n == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
	}
	return out
}
