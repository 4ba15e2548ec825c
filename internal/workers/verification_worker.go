package workers

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/verification"
)

// VerificationWorker closes the outcome loop once per day, filing every
// prediction whose verification window has elapsed.
type VerificationWorker struct {
	*Base
	verifier *verification.Verifier
}

// NewVerificationWorker creates a new verification worker
func NewVerificationWorker(verifier *verification.Verifier, interval time.Duration, enabled bool) *VerificationWorker {
	return &VerificationWorker{
		Base:     NewBase("verification", interval, enabled),
		verifier: verifier,
	}
}

// Run executes one verification iteration
func (w *VerificationWorker) Run(ctx context.Context) error {
	start := time.Now()

	stats, err := w.verifier.Run(ctx, start.UTC())
	if err != nil {
		return err
	}

	if stats.Verified > 0 {
		w.Log().Infof("Verified %d outcomes (%d hits, %d recovered)",
			stats.Verified, stats.TruePositives, stats.Recovered)
	}
	return nil
}
