package workers

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/monitoring"
)

// DriftWorker runs the weekly drift check: feature PSI against the training
// reference, score distribution shift, and outcome-based concept drift.
type DriftWorker struct {
	*Base
	monitor *monitoring.Monitor
}

// NewDriftWorker creates a new drift monitoring worker
func NewDriftWorker(monitor *monitoring.Monitor, interval time.Duration, enabled bool) *DriftWorker {
	return &DriftWorker{
		Base:    NewBase("drift_check", interval, enabled),
		monitor: monitor,
	}
}

// Run executes one drift check
func (w *DriftWorker) Run(ctx context.Context) error {
	start := time.Now()

	report, err := w.monitor.Run(ctx, start.UTC())
	if err != nil {
		return err
	}

	if report.RetrainRecommended {
		w.Log().Warnf("Drift check recommends retraining: %v", report.Reasons)
	} else {
		w.Log().Info("Drift check passed, model within thresholds")
	}
	return nil
}
