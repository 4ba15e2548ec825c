package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

func monitoringTestConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		PSIAlertThreshold:      0.20,
		ConceptDriftRatio:      0.30,
		HitRateMinThreshold:    0.50,
		NullRateBreaker:        0.05,
		VisitNullRateBreaker:   0.45,
		VerificationWindowDays: 30,
		OutcomeLookaheadDays:   60,
		OutcomeWindowMonths:    3,
	}
}

// completeVector fills every nullable feature so no check can trip.
func completeVector() *feature.Vector {
	return &feature.Vector{
		TenureDays:           400,
		SpellDurationDays:    200,
		ContractsInSpell:     2,
		Visits7d:             2,
		Visits14d:            4,
		Visits30d:            8,
		Visits90d:            24,
		AvgWeeklyVisits90d:   1.9,
		DaysSinceLastVisit:   feature.Ptr(3),
		VisitTrend:           feature.Ptr(1.0),
		VisitGapStdDev90d:    feature.Ptr(1.5),
		WeekendRatio90d:      feature.Ptr(0.25),
		PeakHourRatio90d:     feature.Ptr(0.40),
		HasEverVisited:       1,
		DaysUntilContractEnd: feature.Ptr(60),
		DaysSinceLastPayment: feature.Ptr(12),
		AvgMonthlyPayment90d: 49.90,
		PaymentRegularity90d: feature.Ptr(1.0),
		MonthOfYear:          6,
		Age:                  feature.Ptr(34),
		Gender:               1,
	}
}

// stripVisitFeatures nils the attendance-derived nullable features, the way
// a never-visiting member's vector comes out of the computer.
func stripVisitFeatures(v *feature.Vector) *feature.Vector {
	v.DaysSinceLastVisit = nil
	v.VisitTrend = nil
	v.VisitGapStdDev90d = nil
	v.WeekendRatio90d = nil
	v.PeakHourRatio90d = nil
	v.HasEverVisited = 0
	return v
}

func batchWithNulls(size, nullVisit, nullAge int) []*feature.Vector {
	vectors := make([]*feature.Vector, 0, size)
	for i := 0; i < size; i++ {
		v := completeVector()
		if i < nullVisit {
			stripVisitFeatures(v)
		}
		if i < nullAge {
			v.Age = nil
		}
		vectors = append(vectors, v)
	}
	return vectors
}

func TestCheckNullRates_CleanBatchPasses(t *testing.T) {
	err := CheckNullRates(batchWithNulls(100, 0, 0), monitoringTestConfig())
	assert.Nil(t, err)
}

func TestCheckNullRates_EmptyBatchPasses(t *testing.T) {
	assert.Nil(t, CheckNullRates(nil, monitoringTestConfig()))
}

func TestCheckNullRates_VisitFeaturesTolerateNeverVisitors(t *testing.T) {
	// 40% never-visitors stays under the relaxed 45% visit threshold.
	err := CheckNullRates(batchWithNulls(100, 40, 0), monitoringTestConfig())
	assert.Nil(t, err)
}

func TestCheckNullRates_VisitThresholdStillTrips(t *testing.T) {
	err := CheckNullRates(batchWithNulls(100, 50, 0), monitoringTestConfig())
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, errors.ErrCircuitBreakerTripped))

	names := map[string]errors.BreakerCheck{}
	for _, c := range err.Checks {
		names[c.Name] = c
	}
	check, ok := names["null_rate:"+feature.DaysSinceLastVisit]
	require.True(t, ok)
	assert.InDelta(t, 0.50, check.Value, 1e-9)
	assert.Equal(t, 0.45, check.Threshold)
}

func TestCheckNullRates_GeneralThresholdIsStrict(t *testing.T) {
	// 10% missing ages is a pipeline failure at the 5% general threshold.
	err := CheckNullRates(batchWithNulls(100, 0, 10), monitoringTestConfig())
	require.NotNil(t, err)
	require.Len(t, err.Checks, 1)
	assert.Equal(t, "null_rate:"+feature.Age, err.Checks[0].Name)
	assert.InDelta(t, 0.10, err.Checks[0].Value, 1e-9)
	assert.Equal(t, 0.05, err.Checks[0].Threshold)
}

func TestNullRates_ReportsPerFeatureShares(t *testing.T) {
	rates := NullRates(batchWithNulls(10, 2, 1))

	assert.InDelta(t, 0.2, rates[feature.DaysSinceLastVisit], 1e-9)
	assert.InDelta(t, 0.1, rates[feature.Age], 1e-9)
	assert.Equal(t, float64(0), rates[feature.TenureDays])

	assert.Empty(t, NullRates(nil))
}
