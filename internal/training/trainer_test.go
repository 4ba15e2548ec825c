package training

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/model"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// memoryRefs is an in-memory model.ReferenceStore.
type memoryRefs struct {
	active string
	shadow string
}

func (m *memoryRefs) Active(context.Context) (string, error) {
	if m.active == "" {
		return "", errors.Wrap(errors.ErrNoActiveModel, "no production model")
	}
	return m.active, nil
}

func (m *memoryRefs) SetActive(_ context.Context, v string) error {
	m.active = v
	return nil
}

func (m *memoryRefs) Shadow(context.Context) (string, bool, error) {
	return m.shadow, m.shadow != "", nil
}

func (m *memoryRefs) SetShadow(_ context.Context, v string) error {
	m.shadow = v
	return nil
}

func (m *memoryRefs) PromoteShadow(context.Context) error {
	if m.shadow == "" {
		return errors.Wrap(errors.ErrNotFound, "no shadow candidate")
	}
	m.active = m.shadow
	m.shadow = ""
	return nil
}

var _ model.ReferenceStore = (*memoryRefs)(nil)

func churnerVector(memberID int64, asOf time.Time) feature.Vector {
	return feature.Vector{
		MemberID:             memberID,
		AsOf:                 asOf,
		TenureDays:           180,
		SpellDurationDays:    180,
		ContractsInSpell:     1,
		Visits90d:            3,
		DaysSinceLastVisit:   feature.Ptr(40),
		VisitTrend:           feature.Ptr(0.2),
		AvgWeeklyVisits90d:   0.2,
		HasEverVisited:       1,
		DaysUntilContractEnd: feature.Ptr(10),
		ContractExpiring30d:  1,
		AvgMonthlyPayment90d: 49.90,
		PaymentRegularity90d: feature.Ptr(0.4),
		HasOpenBalance:       1,
		IsDefaulter:          1,
		MonthOfYear:          float64(asOf.Month()),
	}
}

func loyalVector(memberID int64, asOf time.Time) feature.Vector {
	return feature.Vector{
		MemberID:             memberID,
		AsOf:                 asOf,
		TenureDays:           600,
		SpellDurationDays:    600,
		ContractsInSpell:     3,
		Visits7d:             3,
		Visits14d:            6,
		Visits30d:            12,
		Visits90d:            36,
		DaysSinceLastVisit:   feature.Ptr(2),
		VisitTrend:           feature.Ptr(1.05),
		AvgWeeklyVisits90d:   2.8,
		HasEverVisited:       1,
		DaysUntilContractEnd: feature.Ptr(120),
		AvgMonthlyPayment90d: 49.90,
		PaymentRegularity90d: feature.Ptr(1.0),
		MonthOfYear:          float64(asOf.Month()),
	}
}

// seedLabeled fills the store with churner and loyal members across months.
func seedLabeled(store *memorySamples, start time.Time, months, perMonth, positives int) {
	id := int64(1)
	for m := 0; m < months; m++ {
		date := start.AddDate(0, m, 14)
		for i := 0; i < perMonth; i++ {
			s := &sample.TrainingSample{
				ID:            uuid.New(),
				MemberID:      id,
				ReferenceDate: date,
				Horizon:       sample.HorizonMonthly,
				LabelType:     sample.LabelActive,
			}
			if i < positives {
				s.Churned = true
				s.LabelType = sample.LabelChurn
				s.Horizon = sample.Horizon30DaysBefore
				s.Vector = churnerVector(id, date)
			} else {
				s.Vector = loyalVector(id, date)
			}
			store.rows = append(store.rows, s)
			id++
		}
	}
}

func TestOrchestrator_TrainProducesShadowCandidate(t *testing.T) {
	store := &memorySamples{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedLabeled(store, start, 6, 40, 15)

	refs := &memoryRefs{}
	o := NewOrchestrator(store, refs, events.NewPublisher(nil), t.TempDir(), plannerConfig())

	version, err := o.Train(context.Background(), start, start.AddDate(0, 6, 0))
	require.NoError(t, err)
	require.NotNil(t, version)

	assert.Regexp(t, `^v\d{8}_\d{6}$`, version.ID)
	assert.Equal(t, version.ID, refs.shadow, "a trained model lands in the shadow slot")
	assert.Empty(t, refs.active, "training never touches the production pointer")
	assert.NotEmpty(t, version.ArtifactPath)
	assert.Greater(t, version.Folds, 1)

	// Held-out metrics on cleanly separable profiles should be strong.
	assert.Greater(t, version.Metrics["roc_auc"], 0.9)
}

func TestOrchestrator_TrainDefaultsToFullStore(t *testing.T) {
	store := &memorySamples{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedLabeled(store, start, 6, 40, 15)

	refs := &memoryRefs{}
	o := NewOrchestrator(store, refs, events.NewPublisher(nil), t.TempDir(), plannerConfig())

	version, err := o.Train(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 14), version.TrainStart)
}

func TestOrchestrator_TrainInsufficientData(t *testing.T) {
	store := &memorySamples{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedLabeled(store, start, 6, 40, 1)

	o := NewOrchestrator(store, &memoryRefs{}, events.NewPublisher(nil), t.TempDir(), plannerConfig())

	_, err := o.Train(context.Background(), start, start.AddDate(0, 6, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))
}

func TestOrchestrator_Promote(t *testing.T) {
	refs := &memoryRefs{shadow: "v20260101_000000"}
	o := NewOrchestrator(&memorySamples{}, refs, events.NewPublisher(nil), t.TempDir(), plannerConfig())

	require.NoError(t, o.Promote(context.Background()))
	assert.Equal(t, "v20260101_000000", refs.active)
	assert.Empty(t, refs.shadow)
}

func TestOrchestrator_PromoteWithoutShadow(t *testing.T) {
	o := NewOrchestrator(&memorySamples{}, &memoryRefs{}, events.NewPublisher(nil), t.TempDir(), plannerConfig())
	assert.Error(t, o.Promote(context.Background()))
}
