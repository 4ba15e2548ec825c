package ml

// PlattCalibrator maps raw ensemble scores to calibrated probabilities via
// sigmoid(A*score + B), fit on a held-out validation split. A is projected
// to stay positive, so the mapping is monotonic by construction: calibration
// can rescale probabilities but never reorder members.
type PlattCalibrator struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// NewPlattCalibrator returns an identity-like calibrator (A=1, B=0).
func NewPlattCalibrator() *PlattCalibrator {
	return &PlattCalibrator{A: 1, B: 0}
}

// Fit estimates A and B by gradient descent on the log loss of
// sigmoid(A*score+B) against the held-out labels.
func (c *PlattCalibrator) Fit(scores, y []float64) {
	if len(scores) == 0 {
		return
	}

	c.A, c.B = 1, 0
	n := float64(len(scores))
	const lr = 0.05
	const epochs = 500

	for epoch := 0; epoch < epochs; epoch++ {
		var gradA, gradB float64
		for i, s := range scores {
			p := sigmoid(c.A*s + c.B)
			residual := p - y[i]
			gradA += residual * s
			gradB += residual
		}
		c.A -= lr * gradA / n
		c.B -= lr * gradB / n

		// Monotonicity projection
		if c.A < 1e-6 {
			c.A = 1e-6
		}
	}
}

// Calibrate maps a raw score to a probability in [0,1].
func (c *PlattCalibrator) Calibrate(score float64) float64 {
	return sigmoid(c.A*score + c.B)
}
