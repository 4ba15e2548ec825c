package ml

import (
	"math"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Specialist names, in the canonical order used for meta-learner inputs.
const (
	SpecialistAttendance = "attendance_decay"
	SpecialistPayment    = "payment_health"
	SpecialistLifecycle  = "lifecycle_timing"
	SpecialistContext    = "context_seasonal"
)

// Specialist is one first-level classifier restricted to a disjoint feature
// subset grouped by signal type. The restriction bounds its overfitting
// surface and keeps the meta-learner coefficients readable as "which signal
// dominates".
type Specialist struct {
	Name     string              `json:"name"`
	Features []string            `json:"features"`
	Scaler   *Scaler             `json:"scaler"`
	Model    *LogisticRegression `json:"model"`
}

func newSpecialists() []*Specialist {
	return []*Specialist{
		{Name: SpecialistAttendance, Features: feature.AttendanceFeatures},
		{Name: SpecialistPayment, Features: feature.PaymentFeatures},
		{Name: SpecialistLifecycle, Features: feature.LifecycleFeatures},
		{Name: SpecialistContext, Features: feature.ContextFeatures},
	}
}

// Fit trains the specialist on its feature subset of the dataset.
func (s *Specialist) Fit(ds *Dataset, posWeight float64) {
	cols := ds.Columns(s.Features)
	s.Scaler = &Scaler{}
	s.Scaler.Fit(cols)
	s.Model = NewLogisticRegression(posWeight)
	s.Model.Fit(s.Scaler.TransformAll(cols), ds.Y)
}

// Probas predicts uncalibrated churn probabilities for every dataset row.
func (s *Specialist) Probas(ds *Dataset) []float64 {
	cols := ds.Columns(s.Features)
	out := make([]float64, len(cols))
	for i, row := range cols {
		out[i] = s.Model.PredictProba(s.Scaler.Transform(row))
	}
	return out
}

// Proba predicts for one feature vector.
func (s *Specialist) Proba(v *feature.Vector) float64 {
	raw := Vectorize(v, s.Features)
	return s.Model.PredictProba(s.Scaler.Transform(raw))
}

// Contribution is one feature's share of the final score, in raw-score
// (pre-calibration) units.
type Contribution struct {
	Feature string
	Impact  float64
}

// Ensemble is the stacked model: four specialists, a linear meta-learner
// over their probabilities plus a small set of high-signal passthrough
// features, and a monotonic probability calibrator.
type Ensemble struct {
	Version     string              `json:"version"`
	Specialists []*Specialist       `json:"specialists"`
	MetaScaler  *Scaler             `json:"meta_scaler"`
	Meta        *LogisticRegression `json:"meta"`
	Calibrator  *PlattCalibrator    `json:"calibrator"`
	ClassWeight float64             `json:"class_weight"`
	Metrics     map[string]float64  `json:"metrics"`
	Fitted      bool                `json:"fitted"`
}

// NewEnsemble returns an unfitted ensemble with the canonical specialist
// layout.
func NewEnsemble() *Ensemble {
	return &Ensemble{
		Specialists: newSpecialists(),
		Calibrator:  NewPlattCalibrator(),
	}
}

// MetaDim is the meta-learner input width: one probability per specialist
// plus the passthrough features.
func (e *Ensemble) MetaDim() int {
	return len(e.Specialists) + len(feature.PassthroughFeatures)
}

// FitSpecialists trains all four specialists on the dataset. The class
// weight (n_negative / n_positive) is derived here and reused by the
// meta-learner; sample composition is never altered.
func (e *Ensemble) FitSpecialists(train *Dataset) {
	pos := train.Positives()
	neg := train.Len() - pos
	e.ClassWeight = 1
	if pos > 0 {
		e.ClassWeight = float64(neg) / float64(pos)
	}
	for _, s := range e.Specialists {
		s.Fit(train, e.ClassWeight)
	}
}

// MetaInputs builds raw meta-learner rows for a dataset: specialist
// probabilities in canonical order followed by raw passthrough values
// (NaN for null, imputed by the meta scaler).
func (e *Ensemble) MetaInputs(ds *Dataset) [][]float64 {
	probas := make([][]float64, len(e.Specialists))
	for i, s := range e.Specialists {
		probas[i] = s.Probas(ds)
	}
	pass := ds.Columns(feature.PassthroughFeatures)

	out := make([][]float64, ds.Len())
	for r := 0; r < ds.Len(); r++ {
		row := make([]float64, 0, e.MetaDim())
		for i := range e.Specialists {
			row = append(row, probas[i][r])
		}
		row = append(row, pass[r]...)
		out[r] = row
	}
	return out
}

// metaInput builds the raw meta row for one feature vector.
func (e *Ensemble) metaInput(v *feature.Vector) []float64 {
	row := make([]float64, 0, e.MetaDim())
	for _, s := range e.Specialists {
		row = append(row, s.Proba(v))
	}
	for _, name := range feature.PassthroughFeatures {
		val, ok := v.Value(name)
		if !ok {
			val = math.NaN()
		}
		row = append(row, val)
	}
	return row
}

// FitMeta trains the meta-learner on out-of-fold meta rows.
func (e *Ensemble) FitMeta(metaX [][]float64, y []float64) {
	e.MetaScaler = &Scaler{}
	e.MetaScaler.Fit(metaX)
	e.Meta = NewLogisticRegression(e.ClassWeight)
	e.Meta.Fit(e.MetaScaler.TransformAll(metaX), y)
}

// FitCalibrator fits the Platt calibrator on a held-out validation split
// that the meta-learner never trained on.
func (e *Ensemble) FitCalibrator(metaX [][]float64, y []float64) {
	scores := make([]float64, len(metaX))
	for i, row := range metaX {
		scores[i] = e.Meta.RawScore(e.MetaScaler.Transform(row))
	}
	e.Calibrator.Fit(scores, y)
	e.Fitted = true
}

// CalibratedProbas scores pre-built meta rows through meta-learner and
// calibrator.
func (e *Ensemble) CalibratedProbas(metaX [][]float64) []float64 {
	out := make([]float64, len(metaX))
	for i, row := range metaX {
		out[i] = e.Calibrator.Calibrate(e.Meta.RawScore(e.MetaScaler.Transform(row)))
	}
	return out
}

// PredictProba returns the calibrated churn probability for one member's
// feature vector.
func (e *Ensemble) PredictProba(v *feature.Vector) (float64, error) {
	if !e.Fitted {
		return 0, errors.ErrModelNotFitted
	}
	row := e.metaInput(v)
	return e.Calibrator.Calibrate(e.Meta.RawScore(e.MetaScaler.Transform(row))), nil
}

// Contributions decomposes one member's raw score into per-feature terms.
// Passthrough features contribute their meta term directly; each
// specialist's meta term is distributed over its own features proportionally
// to their signed linear terms inside the specialist.
func (e *Ensemble) Contributions(v *feature.Vector) ([]Contribution, error) {
	if !e.Fitted {
		return nil, errors.ErrModelNotFitted
	}

	raw := e.metaInput(v)
	z := e.MetaScaler.Transform(raw)
	impacts := make(map[string]float64)

	for j, s := range e.Specialists {
		term := e.Meta.Weights[j] * z[j]
		distributeSpecialistTerm(s, v, term, impacts)
	}
	for k, name := range feature.PassthroughFeatures {
		j := len(e.Specialists) + k
		impacts[name] += e.Meta.Weights[j] * z[j]
	}

	out := make([]Contribution, 0, len(impacts))
	for name, impact := range impacts {
		out = append(out, Contribution{Feature: name, Impact: impact})
	}
	return out, nil
}

func distributeSpecialistTerm(s *Specialist, v *feature.Vector, term float64, impacts map[string]float64) {
	raw := Vectorize(v, s.Features)
	z := s.Scaler.Transform(raw)

	terms := make([]float64, len(z))
	var sumAbs float64
	for i := range z {
		terms[i] = s.Model.Weights[i] * z[i]
		sumAbs += math.Abs(terms[i])
	}
	if sumAbs < 1e-12 {
		return
	}
	for i, name := range s.Features {
		impacts[name] += term * terms[i] / sumAbs
	}
}
