package ml

import "math"

// Scaler standardizes columns to zero mean and unit variance, computed over
// non-null values only. Nulls (NaN) transform to 0, which is exactly mean
// imputation in standardized space.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit computes per-column mean and standard deviation, ignoring NaN.
func (s *Scaler) Fit(x [][]float64) {
	if len(x) == 0 {
		return
	}
	dims := len(x[0])
	s.Mean = make([]float64, dims)
	s.Std = make([]float64, dims)

	for j := 0; j < dims; j++ {
		var sum float64
		n := 0
		for _, row := range x {
			if math.IsNaN(row[j]) {
				continue
			}
			sum += row[j]
			n++
		}
		if n == 0 {
			s.Mean[j] = 0
			s.Std[j] = 1
			continue
		}
		mean := sum / float64(n)

		var variance float64
		for _, row := range x {
			if math.IsNaN(row[j]) {
				continue
			}
			variance += (row[j] - mean) * (row[j] - mean)
		}
		variance /= float64(n)

		s.Mean[j] = mean
		s.Std[j] = math.Sqrt(variance)
		if s.Std[j] < 1e-12 {
			s.Std[j] = 1 // constant column, leave centered values at 0
		}
	}
}

// Transform standardizes one row, imputing NaN to the column mean.
func (s *Scaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if math.IsNaN(v) {
			out[j] = 0
			continue
		}
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll standardizes a matrix.
func (s *Scaler) TransformAll(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.Transform(row)
	}
	return out
}
