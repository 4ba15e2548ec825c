package training

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

func init() {
	_ = logger.Init("error", "test")
}

// memorySamples is an in-memory sample.Repository for planner tests.
type memorySamples struct {
	rows []*sample.TrainingSample
}

func (m *memorySamples) ReplaceAll(_ context.Context, rows []*sample.TrainingSample) error {
	m.rows = rows
	return nil
}

func (m *memorySamples) ListWindow(_ context.Context, from, to time.Time) ([]*sample.TrainingSample, error) {
	var out []*sample.TrainingSample
	for _, r := range m.rows {
		if !r.ReferenceDate.Before(from) && r.ReferenceDate.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memorySamples) CountPositives(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, r := range m.rows {
		if r.Churned && !r.ReferenceDate.Before(from) && r.ReferenceDate.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *memorySamples) Bounds(_ context.Context) (time.Time, time.Time, error) {
	if len(m.rows) == 0 {
		return time.Time{}, time.Time{}, errors.Wrap(errors.ErrInsufficientData, "sample store is empty")
	}
	earliest, latest := m.rows[0].ReferenceDate, m.rows[0].ReferenceDate
	for _, r := range m.rows {
		if r.ReferenceDate.Before(earliest) {
			earliest = r.ReferenceDate
		}
		if r.ReferenceDate.After(latest) {
			latest = r.ReferenceDate
		}
	}
	return earliest, latest, nil
}

var _ sample.Repository = (*memorySamples)(nil)

// seedMonthly fills the store with perMonth samples on the 15th of every
// month in [start, months), positives of them churn-labeled.
func seedMonthly(store *memorySamples, start time.Time, months, perMonth, positives int) {
	for m := 0; m < months; m++ {
		base := start.AddDate(0, m, 14)
		for i := 0; i < perMonth; i++ {
			store.rows = append(store.rows, &sample.TrainingSample{
				ID:            uuid.New(),
				MemberID:      int64(m*perMonth + i),
				ReferenceDate: base,
				Horizon:       sample.HorizonMonthly,
				LabelType:     sample.LabelActive,
				Churned:       i < positives,
			})
		}
	}
}

func plannerConfig() config.TrainingConfig {
	return config.TrainingConfig{
		MinPositivesPerFold:    10,
		ValidationWindowMonths: 1,
		WarmupMonths:           2,
	}
}

func TestFoldPlanner_BasicSequence(t *testing.T) {
	store := &memorySamples{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedMonthly(store, start, 6, 40, 15)

	p := NewFoldPlanner(store, plannerConfig())
	folds, err := p.Plan(context.Background(), start, start.AddDate(0, 6, 0))
	require.NoError(t, err)
	require.Len(t, folds, 4, "six months minus two warmup months, one month per fold")

	for i, f := range folds {
		assert.Equal(t, i+1, f.Number)
		assert.Equal(t, start, f.TrainStart, "train window always starts at the span start")
		assert.Equal(t, f.TrainEnd, f.ValStart, "validation starts where training ends")
		assert.True(t, f.ValEnd.After(f.ValStart))
		assert.GreaterOrEqual(t, f.Positives, 10)
	}

	// Expanding train windows: each fold trains on everything before its
	// validation window.
	for i := 1; i < len(folds); i++ {
		assert.Equal(t, folds[i-1].ValEnd, folds[i].ValStart)
		assert.True(t, folds[i].TrainEnd.After(folds[i-1].TrainEnd))
	}
}

func TestFoldPlanner_WindowAutoExpands(t *testing.T) {
	store := &memorySamples{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// Only 4 positives per month: a single month can never satisfy the
	// minimum of 10, so windows must widen to three months.
	seedMonthly(store, start, 8, 40, 4)

	p := NewFoldPlanner(store, plannerConfig())
	folds, err := p.Plan(context.Background(), start, start.AddDate(0, 8, 0))
	require.NoError(t, err)
	require.NotEmpty(t, folds)

	first := folds[0]
	months := 0
	for d := first.ValStart; d.Before(first.ValEnd); d = d.AddDate(0, 1, 0) {
		months++
	}
	assert.GreaterOrEqual(t, months, 3)
	assert.GreaterOrEqual(t, first.Positives, 10)
}

func TestFoldPlanner_InsufficientData(t *testing.T) {
	store := &memorySamples{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedMonthly(store, start, 6, 40, 1)

	p := NewFoldPlanner(store, plannerConfig())
	_, err := p.Plan(context.Background(), start, start.AddDate(0, 6, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientData))

	var insufficient *errors.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 10, insufficient.MinPositives)
}

func TestFoldPlanner_RemainderMergesIntoLastFold(t *testing.T) {
	store := &memorySamples{}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// Five healthy months, then one month with too few positives to stand
	// alone as a fold.
	seedMonthly(store, start, 5, 40, 15)
	thin := start.AddDate(0, 5, 14)
	for i := 0; i < 3; i++ {
		store.rows = append(store.rows, &sample.TrainingSample{
			ID:            uuid.New(),
			MemberID:      int64(90000 + i),
			ReferenceDate: thin,
			Churned:       true,
		})
	}

	end := start.AddDate(0, 6, 0)
	p := NewFoldPlanner(store, plannerConfig())
	folds, err := p.Plan(context.Background(), start, end)
	require.NoError(t, err)
	require.NotEmpty(t, folds)

	last := folds[len(folds)-1]
	assert.Equal(t, end, last.ValEnd, "trailing remainder must be absorbed by the last fold")
}
