package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 200.0, Mean([]float64{100, 200, 300}))
	assert.InDelta(t, 98.8333333, Mean([]float64{99.5, 99.0, 98.0}), 1e-6)
	assert.Equal(t, -2.5, Mean([]float64{-5, 0}))
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestPercentileLinearInterpolation(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{name: "three values p95", values: []float64{100, 200, 300}, p: 95, expected: 290},
		{name: "unsorted input", values: []float64{300, 100, 200}, p: 95, expected: 290},
		{name: "median of even count", values: []float64{1, 2, 3, 4}, p: 50, expected: 2.5},
		{name: "single value", values: []float64{42.5}, p: 95, expected: 42.5},
		{name: "two values", values: []float64{10, 20}, p: 95, expected: 19.5},
		{name: "one to twenty", values: seq(1, 20), p: 95, expected: 19.05},
		{name: "repeated values", values: []float64{7, 7, 7, 7}, p: 95, expected: 7},
		{name: "p0 is min", values: []float64{5, 1, 9}, p: 0, expected: 1},
		{name: "p100 is max", values: []float64{5, 1, 9}, p: 100, expected: 9},
		{name: "negative values", values: []float64{-10, -20, -30}, p: 50, expected: -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Percentile(tt.values, tt.p), 1e-9)
		})
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 95)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestPercentileEmpty(t *testing.T) {
	assert.True(t, math.IsNaN(Percentile(nil, 95)))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 98.83, Round(98.833333, 2))
	assert.Equal(t, 290.0, Round(290.00000000000006, 2))
	assert.Equal(t, 0.12, Round(0.125, 2))
	assert.Equal(t, 0.38, Round(0.375, 2))
	assert.Equal(t, 2.67, Round(2.675, 2))
	assert.Equal(t, 100.0, Round(99.999, 2))
	assert.Equal(t, -1.5, Round(-1.5, 2))
	assert.Equal(t, 2.0, Round(2.5, 0))

	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
	assert.True(t, math.IsInf(Round(math.Inf(1), 2), 1))
}

func TestCountAbove(t *testing.T) {
	values := []float64{100, 150, 200, 300}

	assert.Equal(t, 2, CountAbove(values, 150), "equal to threshold is not a breach")
	assert.Equal(t, 0, CountAbove(values, 300))
	assert.Equal(t, 4, CountAbove(values, 0))
	assert.Equal(t, 4, CountAbove(values, -10))
	assert.Equal(t, 0, CountAbove(nil, 0))
}

func seq(from, to int) []float64 {
	out := make([]float64, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, float64(i))
	}
	return out
}
