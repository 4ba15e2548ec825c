package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
)

func verifiedRecord(memberID int64, scoreDate time.Time, tier prediction.RiskTier, category prediction.OutcomeCategory) *prediction.HistoryRecord {
	verifiedAt := scoreDate.AddDate(0, 0, 30)
	actual := category == prediction.OutcomeTruePositive || category == prediction.OutcomeFalseNegative
	return &prediction.HistoryRecord{
		MemberID:        memberID,
		ScoreDate:       scoreDate,
		Tier:            tier,
		ActualChurned:   &actual,
		OutcomeCategory: &category,
		VerifiedAt:      &verifiedAt,
	}
}

func TestBuildReport_AggregatesPerTier(t *testing.T) {
	since := day(2026, 1, 1)
	scored := day(2026, 1, 15)

	h := newHistoryStub()
	h.records = []*prediction.HistoryRecord{
		verifiedRecord(1, scored, prediction.TierHigh, prediction.OutcomeTruePositive),
		verifiedRecord(2, scored, prediction.TierHigh, prediction.OutcomeTruePositive),
		verifiedRecord(3, scored, prediction.TierHigh, prediction.OutcomeRecovered),
		verifiedRecord(4, scored, prediction.TierHigh, prediction.OutcomeFalsePositive),
		verifiedRecord(5, scored, prediction.TierMedium, prediction.OutcomeFalsePositive),
		verifiedRecord(6, scored, prediction.TierLow, prediction.OutcomeTrueNegative),
		verifiedRecord(7, scored, prediction.TierLow, prediction.OutcomeFalseNegative),
		// Outside the window, must not count.
		verifiedRecord(8, day(2025, 11, 1), prediction.TierHigh, prediction.OutcomeTruePositive),
	}

	report, err := BuildReport(context.Background(), h, since)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Verified)
	require.Len(t, report.Tiers, 3)

	high := report.Tiers[0]
	assert.Equal(t, prediction.TierHigh, high.Tier)
	assert.Equal(t, 4, high.Total)
	assert.Equal(t, 2, high.TruePositives)
	assert.Equal(t, 1, high.Recovered)
	assert.Equal(t, 1, high.FalsePositives)
	// A recovered member counts as a hit.
	assert.InDelta(t, 0.75, high.HitRate(), 1e-9)

	medium := report.Tiers[1]
	assert.Equal(t, prediction.TierMedium, medium.Tier)
	assert.InDelta(t, 0.0, medium.HitRate(), 1e-9)

	low := report.Tiers[2]
	assert.Equal(t, prediction.TierLow, low.Tier)
	assert.Equal(t, 1, low.TrueNegatives)
	assert.Equal(t, 1, low.FalseNegatives)
}

func movedRecord(memberID int64, scoreDate time.Time, tier prediction.RiskTier, category prediction.OutcomeCategory, movement prediction.TierMovement) *prediction.HistoryRecord {
	r := verifiedRecord(memberID, scoreDate, tier, category)
	r.TierMovement = &movement
	return r
}

func TestBuildReport_CountsTierMovements(t *testing.T) {
	scored := day(2026, 1, 15)

	h := newHistoryStub()
	h.records = []*prediction.HistoryRecord{
		movedRecord(1, scored, prediction.TierHigh, prediction.OutcomeRecovered, prediction.MovementImproved),
		movedRecord(2, scored, prediction.TierHigh, prediction.OutcomeFalsePositive, prediction.MovementImproved),
		movedRecord(3, scored, prediction.TierHigh, prediction.OutcomeTruePositive, prediction.MovementChurned),
		movedRecord(4, scored, prediction.TierLow, prediction.OutcomeTrueNegative, prediction.MovementWorsened),
		movedRecord(5, scored, prediction.TierLow, prediction.OutcomeTrueNegative, prediction.MovementStable),
	}

	report, err := BuildReport(context.Background(), h, day(2026, 1, 1))
	require.NoError(t, err)
	require.Len(t, report.Tiers, 2)

	high := report.Tiers[0]
	assert.Equal(t, 2, high.Improved)
	assert.Equal(t, 0, high.Worsened)

	low := report.Tiers[1]
	assert.Equal(t, 0, low.Improved)
	assert.Equal(t, 1, low.Worsened)

	out := report.String()
	assert.Contains(t, out, "improved=2 worsened=0")
	assert.Contains(t, out, "improved=0 worsened=1")
}

func TestBuildReport_EmptyHistory(t *testing.T) {
	report, err := BuildReport(context.Background(), newHistoryStub(), day(2026, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Verified)
	assert.Empty(t, report.Tiers)
}

func TestTierSummary_HitRateGuardsEmptyTier(t *testing.T) {
	s := &TierSummary{Tier: prediction.TierHigh}
	assert.Equal(t, float64(0), s.HitRate())
}

func TestReport_StringRendersTierLines(t *testing.T) {
	h := newHistoryStub()
	h.records = []*prediction.HistoryRecord{
		verifiedRecord(1, day(2026, 1, 15), prediction.TierHigh, prediction.OutcomeTruePositive),
		verifiedRecord(2, day(2026, 1, 15), prediction.TierLow, prediction.OutcomeTrueNegative),
	}

	report, err := BuildReport(context.Background(), h, day(2026, 1, 1))
	require.NoError(t, err)

	out := report.String()
	assert.Contains(t, out, "Verified outcomes since 2026-01-01")
	assert.Contains(t, out, "hit_rate=100.0%")
	assert.Contains(t, out, "tn=1")
}
