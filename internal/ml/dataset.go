package ml

import (
	"math"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
)

// Dataset is a dense training matrix in canonical feature order.
// Null feature values are encoded as NaN and imputed by the scaler.
type Dataset struct {
	Names     []string
	X         [][]float64
	Y         []float64
	MemberIDs []int64
	Dates     []time.Time

	index map[string]int
}

// NewDataset allocates an empty dataset over the canonical feature order.
func NewDataset() *Dataset {
	d := &Dataset{Names: feature.AllFeatures}
	d.buildIndex()
	return d
}

// FromSamples builds a dataset from training samples.
func FromSamples(samples []*sample.TrainingSample) *Dataset {
	d := NewDataset()
	for _, s := range samples {
		y := 0.0
		if s.Churned {
			y = 1.0
		}
		d.Append(&s.Vector, y, s.MemberID, s.ReferenceDate)
	}
	return d
}

// Append adds one row.
func (d *Dataset) Append(v *feature.Vector, y float64, memberID int64, date time.Time) {
	d.X = append(d.X, Vectorize(v, d.Names))
	d.Y = append(d.Y, y)
	d.MemberIDs = append(d.MemberIDs, memberID)
	d.Dates = append(d.Dates, date)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.X) }

// Positives counts churn-labeled rows.
func (d *Dataset) Positives() int {
	n := 0
	for _, y := range d.Y {
		if y == 1 {
			n++
		}
	}
	return n
}

// Columns extracts the named columns as a row-major sub-matrix.
func (d *Dataset) Columns(names []string) [][]float64 {
	cols := make([]int, len(names))
	for i, n := range names {
		cols[i] = d.index[n]
	}
	out := make([][]float64, len(d.X))
	for r, row := range d.X {
		sub := make([]float64, len(cols))
		for i, c := range cols {
			sub[i] = row[c]
		}
		out[r] = sub
	}
	return out
}

// Slice returns a row-range view [from, to).
func (d *Dataset) Slice(from, to int) *Dataset {
	s := &Dataset{
		Names:     d.Names,
		X:         d.X[from:to],
		Y:         d.Y[from:to],
		MemberIDs: d.MemberIDs[from:to],
		Dates:     d.Dates[from:to],
	}
	s.buildIndex()
	return s
}

func (d *Dataset) buildIndex() {
	d.index = make(map[string]int, len(d.Names))
	for i, n := range d.Names {
		d.index[n] = i
	}
}

// Vectorize flattens a feature vector into the given name order, encoding
// null values as NaN.
func Vectorize(v *feature.Vector, names []string) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		val, ok := v.Value(name)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = val
	}
	return out
}
