package workers

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/scoring"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// ScoringWorker runs the daily batch scoring pass. One iteration scores
// every active member for the current date; the scorer itself is idempotent,
// so an extra run after a crash restart is harmless.
type ScoringWorker struct {
	*Base
	scorer *scoring.Scorer
}

// NewScoringWorker creates a new scoring worker
func NewScoringWorker(scorer *scoring.Scorer, interval time.Duration, enabled bool) *ScoringWorker {
	return &ScoringWorker{
		Base:   NewBase("scoring", interval, enabled),
		scorer: scorer,
	}
}

// Run executes one scoring iteration
func (w *ScoringWorker) Run(ctx context.Context) error {
	start := time.Now()
	scoreDate := truncateToDay(start.UTC())

	stats, err := w.scorer.Run(ctx, scoreDate)
	if err != nil {
		if errors.Is(err, errors.ErrCircuitBreakerTripped) {
			w.Log().Errorf("Scoring halted by circuit breaker; yesterday's predictions remain live: %v", err)
		}
		if errors.Is(err, errors.ErrNoActiveModel) {
			w.Log().Warn("No production model yet, skipping scoring run")
		}
		return err
	}

	w.Log().Infof("Scored %d members (%d at risk) with model %s",
		stats.Scored, stats.High+stats.Medium, stats.ModelVersion)
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
