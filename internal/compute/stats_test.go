package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))

	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values, "input must not be reordered")
}

func TestMean(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Mean(nil))
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
}

func TestQuartilesExclusive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		values     []float64
		q1, q2, q3 float64
	}{
		{name: "four values", values: []float64{4, 3, 2, 1}, q1: 1.25, q2: 2.5, q3: 3.75},
		{name: "ten values", values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, q1: 2.75, q2: 5.5, q3: 8.25},
		{name: "two values extrapolate", values: []float64{1, 3}, q1: 0.5, q2: 2, q3: 3.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			q1, q2, q3, ok := Quartiles(tc.values)
			assert.True(t, ok)
			assert.InDelta(t, tc.q1, q1, 1e-9)
			assert.InDelta(t, tc.q2, q2, 1e-9)
			assert.InDelta(t, tc.q3, q3, 1e-9)
		})
	}

	_, _, _, ok := Quartiles([]float64{7})
	assert.False(t, ok)
}
