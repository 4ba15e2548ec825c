package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/model"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/features"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/ml"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/monitoring"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// predictionNamespace seeds deterministic prediction IDs so a re-run of the
// same date with the same model reproduces the same rows.
var predictionNamespace = uuid.MustParse("8f3c5d1a-41f7-4df0-9a2e-6c4b7e2a9f10")

// Stats summarizes one scoring run.
type Stats struct {
	ScoreDate    time.Time
	ModelVersion string
	Scored       int
	High         int
	Medium       int
	Low          int
	Failures     int
	Duration     time.Duration
}

// Scorer runs the daily batch: feature vectors for every active member, a
// data-quality gate, calibrated probabilities, tiering, churn typing,
// explanations, and persistence. Nothing is written unless the whole batch
// passes the circuit breaker.
type Scorer struct {
	members     member.Repository
	computer    *features.Computer
	predictions prediction.Repository
	history     prediction.HistoryRepository
	snapshots   feature.SnapshotRepository
	refs        model.ReferenceStore
	publisher   *events.Publisher
	modelDir    string
	cfg         config.PipelineConfig
	monCfg      config.MonitoringConfig
	log         *logger.Logger
}

// NewScorer creates a new daily batch scorer
func NewScorer(
	members member.Repository,
	computer *features.Computer,
	predictions prediction.Repository,
	history prediction.HistoryRepository,
	snapshots feature.SnapshotRepository,
	refs model.ReferenceStore,
	publisher *events.Publisher,
	modelDir string,
	cfg config.PipelineConfig,
	monCfg config.MonitoringConfig,
) *Scorer {
	return &Scorer{
		members:     members,
		computer:    computer,
		predictions: predictions,
		history:     history,
		snapshots:   snapshots,
		refs:        refs,
		publisher:   publisher,
		modelDir:    modelDir,
		cfg:         cfg,
		monCfg:      monCfg,
		log:         logger.Get().With("component", "scorer"),
	}
}

// Run scores every active member as of scoreDate with the production model.
// Re-running the same date replaces that date's rows.
func (s *Scorer) Run(ctx context.Context, scoreDate time.Time) (*Stats, error) {
	started := time.Now()

	version, err := s.refs.Active(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "resolve production model")
	}
	ensemble, err := ml.LoadVersion(s.modelDir, version)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", version)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScoringBudget)
	defer cancel()

	memberIDs, err := s.members.ListActiveIDs(ctx, scoreDate)
	if err != nil {
		return nil, errors.Wrap(err, "list active members")
	}
	s.log.Infof("Scoring %d active members for %s with model %s",
		len(memberIDs), scoreDate.Format("2006-01-02"), version)

	batch, failures, err := s.computeBatch(ctx, memberIDs, scoreDate)
	if err != nil {
		return nil, err
	}

	if err := s.runBreaker(ctx, scoreDate, batch); err != nil {
		return nil, err
	}

	stats := &Stats{ScoreDate: scoreDate, ModelVersion: version, Failures: failures}
	preds, records, snaps, err := s.scoreBatch(ensemble, batch, scoreDate, stats)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, scoreDate, preds, records, snaps); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(started)
	s.recordStats(stats)
	s.publishSummary(ctx, stats)

	s.log.Infof("Scoring complete: %d scored (%d high, %d medium, %d low), %d failures in %s",
		stats.Scored, stats.High, stats.Medium, stats.Low, stats.Failures, stats.Duration)
	return stats, nil
}

// scoredMember pairs a member with their feature vector.
type scoredMember struct {
	member *member.Member
	vector *feature.Vector
}

// computeBatch builds feature vectors for the whole population under the
// rate limit and the run budget. Individual feature failures skip the member;
// a blown budget aborts the run.
func (s *Scorer) computeBatch(ctx context.Context, memberIDs []int64, scoreDate time.Time) ([]scoredMember, int, error) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.ScoringRateLimit), int(s.cfg.ScoringRateLimit))
	batch := make([]scoredMember, 0, len(memberIDs))
	failures := 0

	for _, id := range memberIDs {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, 0, errors.Wrapf(errors.ErrScoringBudgetExceeded,
					"budget %s exhausted after %d of %d members",
					s.cfg.ScoringBudget, len(batch), len(memberIDs))
			}
			return nil, 0, err
		}

		m, err := s.members.GetByID(ctx, id)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "load member %d", id)
		}
		if m == nil {
			s.log.Warnf("Skipping member %d: active contract but no registration record", id)
			failures++
			continue
		}

		v, err := s.computer.Compute(ctx, id, scoreDate)
		if err != nil {
			if errors.Is(err, errors.ErrFeatureComputation) {
				s.log.Warnf("Skipping member %d: %v", id, err)
				metrics.MembersScored.WithLabelValues("feature_error").Inc()
				failures++
				continue
			}
			return nil, 0, err
		}

		metrics.FeatureComputations.WithLabelValues("success").Inc()
		batch = append(batch, scoredMember{member: m, vector: v})
	}
	return batch, failures, nil
}

// runBreaker halts the run on batch-wide data-quality failures. The previous
// day's predictions stay in place, which beats serving predictions computed
// from a half-broken upstream sync.
func (s *Scorer) runBreaker(ctx context.Context, scoreDate time.Time, batch []scoredMember) error {
	vectors := make([]*feature.Vector, len(batch))
	for i, b := range batch {
		vectors[i] = b.vector
	}

	for name, nullRate := range monitoring.NullRates(vectors) {
		metrics.FeatureNullRate.WithLabelValues(name).Set(nullRate)
	}

	breakerErr := monitoring.CheckNullRates(vectors, s.monCfg)
	if breakerErr == nil {
		return nil
	}

	checks := make([]events.BreakerCheck, len(breakerErr.Checks))
	for i, c := range breakerErr.Checks {
		checks[i] = events.BreakerCheck{Name: c.Name, Value: c.Value, Threshold: c.Threshold}
		metrics.CircuitBreakerTrips.WithLabelValues(c.Name).Inc()
	}

	event := &events.CircuitBreakerTrippedEvent{
		BaseEvent: events.NewBaseEvent("monitoring.circuit_breaker_tripped"),
		ScoreDate: scoreDate.Format("2006-01-02"),
		Checks:    checks,
	}
	if err := s.publisher.PublishCircuitBreakerTripped(ctx, event); err != nil {
		s.log.Errorf("Failed to publish circuit breaker event: %v", err)
	}
	return breakerErr
}

// scoreBatch runs the model over the vetted batch.
func (s *Scorer) scoreBatch(ensemble *ml.Ensemble, batch []scoredMember, scoreDate time.Time, stats *Stats) ([]*prediction.Prediction, []*prediction.HistoryRecord, []*feature.Snapshot, error) {
	scoredAt := time.Now().UTC()
	preds := make([]*prediction.Prediction, 0, len(batch))
	records := make([]*prediction.HistoryRecord, 0, len(batch))
	snaps := make([]*feature.Snapshot, 0, len(batch))

	for _, b := range batch {
		p, err := ensemble.PredictProba(b.vector)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "score member %d", b.member.ID)
		}

		tier := TierFor(p, s.cfg)
		churnType := ClassifyChurnType(b.vector, tier, s.cfg)

		contribs, err := ensemble.Contributions(b.vector)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "explain member %d", b.member.ID)
		}

		pred := &prediction.Prediction{
			ID:           predictionID(b.member.ID, scoreDate, stats.ModelVersion),
			MemberID:     b.member.ID,
			BranchID:     b.member.HomeBranchID,
			ScoreDate:    scoreDate,
			ScoredAt:     scoredAt,
			Probability:  p,
			Tier:         tier,
			ChurnType:    churnType,
			Reasons:      ExplainReasons(contribs, b.vector),
			PlaybookID:   PlaybookFor(tier, churnType),
			ModelVersion: stats.ModelVersion,

			DaysUntilContractEnd: toInt64Ptr(b.vector.DaysUntilContractEnd),
			DaysSinceLastVisit:   toInt64Ptr(b.vector.DaysSinceLastVisit),
			AvgWeeklyVisits:      feature.Ptr(b.vector.AvgWeeklyVisits90d),
		}
		preds = append(preds, pred)

		records = append(records, &prediction.HistoryRecord{
			ID:           pred.ID,
			MemberID:     pred.MemberID,
			BranchID:     pred.BranchID,
			ScoreDate:    pred.ScoreDate,
			ScoredAt:     pred.ScoredAt,
			Probability:  pred.Probability,
			Tier:         pred.Tier,
			ChurnType:    pred.ChurnType,
			ModelVersion: pred.ModelVersion,
		})

		snaps = append(snaps, &feature.Snapshot{
			MemberID:     b.member.ID,
			ScoreDate:    scoreDate,
			ModelVersion: stats.ModelVersion,
			Vector:       *b.vector,
		})

		metrics.MembersScored.WithLabelValues("success").Inc()
		metrics.ChurnProbability.Observe(p)
		stats.Scored++
		switch tier {
		case prediction.TierHigh:
			stats.High++
		case prediction.TierMedium:
			stats.Medium++
		default:
			stats.Low++
		}
	}
	return preds, records, snaps, nil
}

func (s *Scorer) persist(ctx context.Context, scoreDate time.Time, preds []*prediction.Prediction, records []*prediction.HistoryRecord, snaps []*feature.Snapshot) error {
	if err := s.predictions.ReplaceForDate(ctx, scoreDate, preds); err != nil {
		return errors.Wrap(err, "persist predictions")
	}
	if err := s.history.Append(ctx, scoreDate, records); err != nil {
		return errors.Wrap(err, "persist prediction history")
	}
	if err := s.snapshots.WriteBatch(ctx, snaps); err != nil {
		// Snapshots only feed monitoring; losing a day degrades drift
		// detection but must not fail the scoring run.
		s.log.Errorf("Failed to persist feature snapshots: %v", err)
	}
	return nil
}

func (s *Scorer) recordStats(stats *Stats) {
	metrics.ScoringDuration.Observe(stats.Duration.Seconds())
	metrics.RiskTierMembers.WithLabelValues(prediction.TierHigh.String()).Set(float64(stats.High))
	metrics.RiskTierMembers.WithLabelValues(prediction.TierMedium.String()).Set(float64(stats.Medium))
	metrics.RiskTierMembers.WithLabelValues(prediction.TierLow.String()).Set(float64(stats.Low))
}

func (s *Scorer) publishSummary(ctx context.Context, stats *Stats) {
	event := &events.ScoringRunCompletedEvent{
		BaseEvent:    events.NewBaseEvent("pipeline.scoring_run_completed"),
		ScoreDate:    stats.ScoreDate.Format("2006-01-02"),
		ModelVersion: stats.ModelVersion,
		ScoredTotal:  stats.Scored,
		HighRisk:     stats.High,
		MediumRisk:   stats.Medium,
		LowRisk:      stats.Low,
		Failures:     stats.Failures,
		DurationSecs: stats.Duration.Seconds(),
	}
	if err := s.publisher.PublishScoringRunCompleted(ctx, event); err != nil {
		s.log.Errorf("Failed to publish scoring summary: %v", err)
	}
}

// predictionID derives a stable ID from the scoring key, so re-runs upsert
// rather than duplicate.
func predictionID(memberID int64, scoreDate time.Time, version string) uuid.UUID {
	key := fmt.Sprintf("%d:%s:%s", memberID, scoreDate.Format("2006-01-02"), version)
	return uuid.NewSHA1(predictionNamespace, []byte(key))
}

func toInt64Ptr(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
