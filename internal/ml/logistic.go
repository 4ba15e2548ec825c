package ml

import "math"

// LogisticRegression is an L2-regularized binary classifier trained by
// full-batch gradient descent. Zero initialization and a fixed epoch count
// keep training fully deterministic: the same inputs always produce the
// same weights, which is what makes rescoring a date byte-identical.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	// PosWeight multiplies the loss gradient of positive rows. Set to
	// n_negative/n_positive it compensates for class imbalance without ever
	// touching sample composition.
	PosWeight float64 `json:"pos_weight"`

	LearningRate float64 `json:"-"`
	L2           float64 `json:"-"`
	Epochs       int     `json:"-"`
}

// NewLogisticRegression returns a classifier with the pipeline's defaults.
func NewLogisticRegression(posWeight float64) *LogisticRegression {
	if posWeight <= 0 {
		posWeight = 1
	}
	return &LogisticRegression{
		PosWeight:    posWeight,
		LearningRate: 0.1,
		L2:           1.0,
		Epochs:       400,
	}
}

// Fit trains on standardized rows. y must be 0 or 1.
func (m *LogisticRegression) Fit(x [][]float64, y []float64) {
	if len(x) == 0 {
		return
	}
	dims := len(x[0])
	m.Weights = make([]float64, dims)
	m.Bias = 0

	n := float64(len(x))
	grad := make([]float64, dims)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64

		for i, row := range x {
			p := m.PredictProba(row)
			residual := p - y[i]
			if y[i] == 1 {
				residual *= m.PosWeight
			}
			for j, v := range row {
				grad[j] += residual * v
			}
			gradBias += residual
		}

		for j := range m.Weights {
			m.Weights[j] -= m.LearningRate * (grad[j]/n + m.L2*m.Weights[j]/n)
		}
		m.Bias -= m.LearningRate * gradBias / n
	}
}

// PredictProba returns the probability of the positive class for one
// standardized row.
func (m *LogisticRegression) PredictProba(row []float64) float64 {
	score := m.Bias
	for j, v := range row {
		if j < len(m.Weights) {
			score += m.Weights[j] * v
		}
	}
	return sigmoid(score)
}

// RawScore returns the pre-sigmoid linear score.
func (m *LogisticRegression) RawScore(row []float64) float64 {
	score := m.Bias
	for j, v := range row {
		if j < len(m.Weights) {
			score += m.Weights[j] * v
		}
	}
	return score
}

func sigmoid(z float64) float64 {
	// Clamp to keep exp finite; beyond ±30 the result is 0 or 1 anyway.
	if z > 30 {
		return 1
	}
	if z < -30 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
