package monitoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rampDistribution(n int, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + float64(i)/float64(n)
	}
	return out
}

func TestPSI_IdenticalDistributionsScoreNearZero(t *testing.T) {
	ref := rampDistribution(1000, 0)
	cur := rampDistribution(1000, 0)

	psi := PSI(ref, cur)
	assert.InDelta(t, 0, psi, 1e-9)
}

func TestPSI_ShiftedDistributionScoresHigh(t *testing.T) {
	ref := rampDistribution(1000, 0)
	cur := rampDistribution(1000, 0.5)

	psi := PSI(ref, cur)
	assert.Greater(t, psi, 0.25)
}

func TestPSI_EmptyInputsScoreZero(t *testing.T) {
	assert.Equal(t, float64(0), PSI(nil, rampDistribution(10, 0)))
	assert.Equal(t, float64(0), PSI(rampDistribution(10, 0), nil))
	assert.Equal(t, float64(0), PSI(nil, nil))
}

func TestPSI_ConstantReferenceDegeneratesGracefully(t *testing.T) {
	ref := make([]float64, 100)
	for i := range ref {
		ref[i] = 0.5
	}

	same := PSI(ref, ref)
	assert.False(t, math.IsNaN(same))
	assert.False(t, math.IsInf(same, 0))
	assert.InDelta(t, 0, same, 1e-9)

	moved := PSI(ref, rampDistribution(100, 2))
	assert.False(t, math.IsNaN(moved))
	assert.False(t, math.IsInf(moved, 0))
	assert.Greater(t, moved, 0.0)
}

func TestPSI_EdgeValuesBinDeterministically(t *testing.T) {
	// Values landing exactly on a quantile edge belong to the bin the edge
	// closes; the same batch must always score the same.
	ref := rampDistribution(200, 0)
	cur := make([]float64, len(ref))
	copy(cur, ref)

	first := PSI(ref, cur)
	second := PSI(ref, cur)
	assert.Equal(t, first, second)
}

func TestClassifyPSI(t *testing.T) {
	const alert = 0.20

	assert.Equal(t, PSIOk, ClassifyPSI(0.02, alert))
	assert.Equal(t, PSIOk, ClassifyPSI(0.10, alert)) // warning bound is exclusive
	assert.Equal(t, PSIWarning, ClassifyPSI(0.15, alert))
	assert.Equal(t, PSIWarning, ClassifyPSI(0.20, alert)) // alert bound is exclusive
	assert.Equal(t, PSIAlert, ClassifyPSI(0.21, alert))
}
