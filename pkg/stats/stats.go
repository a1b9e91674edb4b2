package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values, or NaN when values is empty
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the p-th percentile (0 <= p <= 100) of values using
// linear interpolation between closest ranks: on the sorted values the
// percentile sits at rank p/100*(n-1), interpolated between the two
// neighbouring order statistics. This is numpy's default "linear" method.
// An empty input yields NaN. values is not modified.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[n-1]
	}

	rank := float64(n-1) * (p / 100)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return lerp(sorted[lo], sorted[hi], rank-float64(lo))
}

// lerp interpolates from a to b; for t >= 0.5 it works back from b, which
// keeps the result exact at both ends.
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}

// Round rounds x to the given number of decimal places, ties to even
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow10(places)
	return math.RoundToEven(x*scale) / scale
}

// CountAbove counts values strictly greater than threshold
func CountAbove(values []float64, threshold float64) int {
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return count
}
