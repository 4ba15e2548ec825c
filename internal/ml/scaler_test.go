package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaler_Standardizes(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}}
	s := &Scaler{}
	s.Fit(x)

	assert.InDelta(t, 2.0, s.Mean[0], 1e-9)

	out := s.TransformAll(x)
	var sum float64
	for _, row := range out {
		sum += row[0]
	}
	assert.InDelta(t, 0.0, sum, 1e-9, "standardized column should be centered")
}

func TestScaler_NullsImputeToMean(t *testing.T) {
	x := [][]float64{{1}, {math.NaN()}, {3}}
	s := &Scaler{}
	s.Fit(x)

	// Mean computed over non-null values only
	assert.InDelta(t, 2.0, s.Mean[0], 1e-9)
	// NaN transforms to the centered mean, i.e. zero
	assert.Equal(t, 0.0, s.Transform([]float64{math.NaN()})[0])
}

func TestScaler_ConstantColumn(t *testing.T) {
	x := [][]float64{{5}, {5}, {5}}
	s := &Scaler{}
	s.Fit(x)

	out := s.Transform([]float64{5})
	assert.Equal(t, 0.0, out[0])
	assert.False(t, math.IsNaN(out[0]) || math.IsInf(out[0], 0))
}

func TestScaler_AllNullColumn(t *testing.T) {
	x := [][]float64{{math.NaN()}, {math.NaN()}}
	s := &Scaler{}
	s.Fit(x)

	assert.Equal(t, 0.0, s.Mean[0])
	assert.Equal(t, 1.0, s.Std[0])
	assert.Equal(t, 0.0, s.Transform([]float64{math.NaN()})[0])
}
