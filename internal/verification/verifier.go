package verification

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/intervention"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Stats summarizes one verification run, keyed by outcome category.
type Stats struct {
	Examined       int
	Verified       int
	TruePositives  int
	TrueNegatives  int
	Recovered      int
	FalsePositives int
	FalseNegatives int
}

// Verifier closes the loop on past predictions: once a prediction is old
// enough for its outcome to be observable, it is filed into the outcome
// taxonomy exactly once. RECOVERED is the category that makes the loop
// honest: an at-risk member who stayed after an intervention is a success,
// not a model mistake, and counting them as false positives would punish the
// model for the retention team doing its job.
type Verifier struct {
	history       prediction.HistoryRepository
	spells        spell.Repository
	interventions intervention.Repository
	publisher     *events.Publisher
	cfg           config.MonitoringConfig
	log           *logger.Logger
}

// NewVerifier creates a new outcome verifier
func NewVerifier(
	history prediction.HistoryRepository,
	spells spell.Repository,
	interventions intervention.Repository,
	publisher *events.Publisher,
	cfg config.MonitoringConfig,
) *Verifier {
	return &Verifier{
		history:       history,
		spells:        spells,
		interventions: interventions,
		publisher:     publisher,
		cfg:           cfg,
		log:           logger.Get().With("component", "verifier"),
	}
}

// Run verifies all pending predictions whose verification window has passed
// as of the given date.
func (v *Verifier) Run(ctx context.Context, asOf time.Time) (*Stats, error) {
	limit := asOf.AddDate(0, 0, -v.cfg.VerificationWindowDays)
	pending, err := v.history.ListUnverified(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list unverified predictions")
	}
	v.log.Infof("Verifying %d predictions scored on or before %s",
		len(pending), limit.Format("2006-01-02"))

	stats := &Stats{Examined: len(pending)}
	now := time.Now().UTC()

	for _, record := range pending {
		outcome, err := v.classify(ctx, record)
		if err != nil {
			return nil, errors.Wrapf(err, "classify prediction %s", record.ID)
		}

		movement, err := v.tierMovement(ctx, record, outcome.ActualChurned)
		if err != nil {
			return nil, errors.Wrapf(err, "tier movement for prediction %s", record.ID)
		}

		fired, err := v.history.ApplyVerification(ctx, &prediction.Verification{
			RecordID:        record.ID,
			ActualChurned:   outcome.ActualChurned,
			OutcomeCategory: outcome.Category,
			TierMovement:    movement,
			VerifiedAt:      now,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "apply verification %s", record.ID)
		}
		if !fired {
			// Concurrent verifier already claimed it.
			continue
		}

		stats.count(outcome.Category)
		metrics.OutcomesVerified.WithLabelValues(outcome.Category.String()).Inc()
	}

	v.publishSummary(ctx, stats)
	v.log.Infof("Verification complete: %d verified (%d TP, %d TN, %d recovered, %d FP, %d FN)",
		stats.Verified, stats.TruePositives, stats.TrueNegatives,
		stats.Recovered, stats.FalsePositives, stats.FalseNegatives)
	return stats, nil
}

type classified struct {
	ActualChurned bool
	Category      prediction.OutcomeCategory
}

// classify resolves what actually happened to the member after the
// prediction. A non-churned at-risk member counts as RECOVERED only when an
// intervention was actually executed against that prediction.
func (v *Verifier) classify(ctx context.Context, record *prediction.HistoryRecord) (*classified, error) {
	until := record.ScoreDate.AddDate(0, 0, v.cfg.OutcomeLookaheadDays)
	churned, err := v.spells.ChurnConfirmedBetween(ctx, record.MemberID, record.ScoreDate, until)
	if err != nil {
		return nil, err
	}

	if !record.Tier.AtRisk() {
		if churned {
			return &classified{ActualChurned: true, Category: prediction.OutcomeFalseNegative}, nil
		}
		return &classified{ActualChurned: false, Category: prediction.OutcomeTrueNegative}, nil
	}

	if churned {
		return &classified{ActualChurned: true, Category: prediction.OutcomeTruePositive}, nil
	}

	intervened, err := v.interventions.ExistsForPrediction(ctx, record.MemberID, record.ScoreDate)
	if err != nil {
		return nil, err
	}
	if intervened {
		return &classified{ActualChurned: false, Category: prediction.OutcomeRecovered}, nil
	}
	return &classified{ActualChurned: false, Category: prediction.OutcomeFalsePositive}, nil
}

// tierMovement compares the verified tier with the member's most recent
// subsequent one. A member with no later prediction has left the scored
// population, which reads as CHURNED regardless of the spell check.
func (v *Verifier) tierMovement(ctx context.Context, record *prediction.HistoryRecord, churned bool) (prediction.TierMovement, error) {
	if churned {
		return prediction.MovementChurned, nil
	}

	later, found, err := v.history.LatestTierAfter(ctx, record.MemberID, record.ScoreDate)
	if err != nil {
		return "", err
	}
	if !found {
		return prediction.MovementChurned, nil
	}

	switch {
	case tierRank(later) < tierRank(record.Tier):
		return prediction.MovementImproved, nil
	case tierRank(later) > tierRank(record.Tier):
		return prediction.MovementWorsened, nil
	default:
		return prediction.MovementStable, nil
	}
}

func tierRank(t prediction.RiskTier) int {
	switch t {
	case prediction.TierHigh:
		return 2
	case prediction.TierMedium:
		return 1
	default:
		return 0
	}
}

func (s *Stats) count(category prediction.OutcomeCategory) {
	s.Verified++
	switch category {
	case prediction.OutcomeTruePositive:
		s.TruePositives++
	case prediction.OutcomeTrueNegative:
		s.TrueNegatives++
	case prediction.OutcomeRecovered:
		s.Recovered++
	case prediction.OutcomeFalsePositive:
		s.FalsePositives++
	case prediction.OutcomeFalseNegative:
		s.FalseNegatives++
	}
}

func (v *Verifier) publishSummary(ctx context.Context, stats *Stats) {
	event := &events.OutcomesVerifiedEvent{
		BaseEvent:      events.NewBaseEvent("outcomes.verified"),
		Verified:       stats.Verified,
		TruePositives:  stats.TruePositives,
		TrueNegatives:  stats.TrueNegatives,
		Recovered:      stats.Recovered,
		FalsePositives: stats.FalsePositives,
		FalseNegatives: stats.FalseNegatives,
	}
	if err := v.publisher.PublishOutcomesVerified(ctx, event); err != nil {
		v.log.Errorf("Failed to publish verification summary: %v", err)
	}
}
