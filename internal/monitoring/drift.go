package monitoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/model"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// minVerifiedForRates is the floor below which hit-rate and concept-drift
// ratios are too noisy to act on.
const minVerifiedForRates = 20

// minActualRate floors the denominator of the calibration ratio so a month
// with near-zero observed churn cannot blow the ratio up arbitrarily.
const minActualRate = 0.01

// FeatureDrift is the stability verdict for one feature.
type FeatureDrift struct {
	Feature string
	PSI     float64
	Status  PSIStatus
}

// MonthlyCalibration compares the mean predicted churn probability for one
// score month against the churn rate that actually materialized.
type MonthlyCalibration struct {
	Month      time.Time
	Predicted  float64
	Actual     float64
	DriftRatio float64
	Verified   int
}

// Report is the output of one drift-monitor run.
type Report struct {
	AsOf         time.Time
	ModelVersion string

	Features []FeatureDrift
	ScorePSI float64

	VerifiedCount int
	Calibration   []MonthlyCalibration
	// ConceptDriftRatio is the worst monthly calibration ratio in the window.
	ConceptDriftRatio float64
	HitRates          map[prediction.RiskTier]float64
	OverallHitRate    float64

	RetrainRecommended bool
	Reasons            []string
}

// Monitor compares the scored population against the model's training
// distribution, and the verified outcome stream against what the model
// promised. It never interrupts scoring; its strongest action is a retrain
// recommendation.
type Monitor struct {
	samples   sample.Repository
	snapshots feature.SnapshotRepository
	history   prediction.HistoryRepository
	refs      model.ReferenceStore
	publisher *events.Publisher
	cfg       config.MonitoringConfig
	log       *logger.Logger
}

// NewMonitor creates a new drift monitor
func NewMonitor(
	samples sample.Repository,
	snapshots feature.SnapshotRepository,
	history prediction.HistoryRepository,
	refs model.ReferenceStore,
	publisher *events.Publisher,
	cfg config.MonitoringConfig,
) *Monitor {
	return &Monitor{
		samples:   samples,
		snapshots: snapshots,
		history:   history,
		refs:      refs,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.Get().With("component", "drift_monitor"),
	}
}

// Run produces a drift report as of the given date and publishes alerts for
// every threshold crossing.
func (m *Monitor) Run(ctx context.Context, asOf time.Time) (*Report, error) {
	version, err := m.refs.Active(ctx)
	if err != nil && !errors.Is(err, errors.ErrNoActiveModel) {
		return nil, errors.Wrap(err, "resolve production model")
	}

	report := &Report{
		AsOf:         asOf,
		ModelVersion: version,
		HitRates:     make(map[prediction.RiskTier]float64),
	}

	if err := m.checkFeatureDrift(ctx, asOf, report); err != nil {
		return nil, err
	}
	if err := m.checkScoreDrift(ctx, asOf, report); err != nil {
		return nil, err
	}
	if err := m.checkOutcomes(ctx, asOf, report); err != nil {
		return nil, err
	}

	report.RetrainRecommended = len(report.Reasons) > 0
	if report.RetrainRecommended {
		m.log.Warnf("Retrain recommended for %s: %v", version, report.Reasons)
		event := &events.RetrainRecommendedEvent{
			BaseEvent:    events.NewBaseEvent("monitoring.retrain_recommended"),
			ModelVersion: version,
			Reasons:      report.Reasons,
		}
		if err := m.publisher.PublishRetrainRecommended(ctx, event); err != nil {
			m.log.Errorf("Failed to publish retrain recommendation: %v", err)
		}
	}

	return report, nil
}

// checkFeatureDrift compares the recent scored population's feature
// distributions against the training samples the production model saw.
func (m *Monitor) checkFeatureDrift(ctx context.Context, asOf time.Time, report *Report) error {
	earliest, latest, err := m.samples.Bounds(ctx)
	if err != nil {
		return errors.Wrap(err, "sample store bounds")
	}
	rows, err := m.samples.ListWindow(ctx, earliest, latest.AddDate(0, 0, 1))
	if err != nil {
		return errors.Wrap(err, "load reference samples")
	}
	if len(rows) == 0 {
		m.log.Warn("No training samples available, skipping feature drift check")
		return nil
	}

	from := asOf.AddDate(0, 0, -m.cfg.VerificationWindowDays)
	alerts := 0

	for _, name := range feature.AllFeatures {
		reference := make([]float64, 0, len(rows))
		for _, s := range rows {
			if v, ok := s.Vector.Value(name); ok {
				reference = append(reference, v)
			}
		}

		current, err := m.snapshots.ColumnWindow(ctx, name, from, asOf)
		if err != nil {
			return errors.Wrapf(err, "load snapshot column %s", name)
		}
		if len(reference) == 0 || len(current) == 0 {
			continue
		}

		psi := PSI(reference, current)
		status := ClassifyPSI(psi, m.cfg.PSIAlertThreshold)
		report.Features = append(report.Features, FeatureDrift{Feature: name, PSI: psi, Status: status})
		metrics.FeaturePSI.WithLabelValues(name).Set(psi)

		if status == PSIOk {
			continue
		}
		m.log.Warnf("Feature %s PSI %.4f (%s)", name, psi, status)
		m.publishAlert(ctx, "feature_psi", name, string(status), psi, m.cfg.PSIAlertThreshold)
		if status == PSIAlert {
			alerts++
		}
	}

	if alerts > 0 {
		report.Reasons = append(report.Reasons, fmt.Sprintf("%d features above PSI alert threshold", alerts))
	}
	return nil
}

// checkScoreDrift compares the probability distribution of the latest
// scoring window against the preceding window of equal length.
func (m *Monitor) checkScoreDrift(ctx context.Context, asOf time.Time, report *Report) error {
	window := m.cfg.VerificationWindowDays
	mid := asOf.AddDate(0, 0, -window)
	start := asOf.AddDate(0, 0, -2*window)

	previous, err := m.history.ListWindow(ctx, start, mid)
	if err != nil {
		return errors.Wrap(err, "load previous score window")
	}
	recent, err := m.history.ListWindow(ctx, mid, asOf)
	if err != nil {
		return errors.Wrap(err, "load recent score window")
	}
	if len(previous) == 0 || len(recent) == 0 {
		return nil
	}

	psi := PSI(probabilities(previous), probabilities(recent))
	report.ScorePSI = psi
	metrics.ScorePSI.Set(psi)

	status := ClassifyPSI(psi, m.cfg.PSIAlertThreshold)
	if status != PSIOk {
		m.log.Warnf("Score distribution PSI %.4f (%s)", psi, status)
		m.publishAlert(ctx, "score_psi", "churn_probability", string(status), psi, m.cfg.PSIAlertThreshold)
		if status == PSIAlert {
			report.Reasons = append(report.Reasons, "score distribution shifted above PSI alert threshold")
		}
	}
	return nil
}

// checkOutcomes measures how the verified outcome stream tracks the model's
// promises: monthly calibration of predicted vs actual churn rates signals
// concept drift, and the at-risk hit rate is the operational bottom line.
func (m *Monitor) checkOutcomes(ctx context.Context, asOf time.Time, report *Report) error {
	since := asOf.AddDate(0, -m.cfg.OutcomeWindowMonths, 0)
	verified, err := m.history.ListVerifiedSince(ctx, since)
	if err != nil {
		return errors.Wrap(err, "load verified outcomes")
	}

	report.VerifiedCount = len(verified)
	if len(verified) < minVerifiedForRates {
		m.log.Infof("Only %d verified outcomes since %s, skipping outcome checks",
			len(verified), since.Format("2006-01-02"))
		return nil
	}

	m.checkConceptDrift(ctx, verified, report)

	tierHits := map[prediction.RiskTier]int{}
	tierTotals := map[prediction.RiskTier]int{}

	for _, r := range verified {
		if r.OutcomeCategory == nil || !r.Tier.AtRisk() {
			continue
		}
		tierTotals[r.Tier]++
		switch *r.OutcomeCategory {
		case prediction.OutcomeTruePositive, prediction.OutcomeRecovered:
			tierHits[r.Tier]++
		}
	}

	atRiskHits, atRiskTotal := 0, 0
	for tier, total := range tierTotals {
		rate := float64(tierHits[tier]) / float64(total)
		report.HitRates[tier] = rate
		metrics.HitRate.WithLabelValues(tier.String()).Set(rate)
		atRiskHits += tierHits[tier]
		atRiskTotal += total
	}

	if atRiskTotal >= minVerifiedForRates {
		report.OverallHitRate = float64(atRiskHits) / float64(atRiskTotal)
		if report.OverallHitRate < m.cfg.HitRateMinThreshold {
			m.log.Warnf("At-risk hit rate %.2f%% below minimum", report.OverallHitRate*100)
			m.publishAlert(ctx, "hit_rate", "at_risk", string(PSIAlert),
				report.OverallHitRate, m.cfg.HitRateMinThreshold)
			report.Reasons = append(report.Reasons, "at-risk hit rate below minimum")
		}
	}
	return nil
}

// checkConceptDrift groups verified outcomes by score month and compares
// each month's mean predicted probability against its observed churn rate. A
// model can stay distributionally stable while drifting in calibration, so
// this check is independent of the PSI ones.
func (m *Monitor) checkConceptDrift(ctx context.Context, verified []*prediction.HistoryRecord, report *Report) {
	type agg struct {
		probSum float64
		churned int
		total   int
	}
	months := map[time.Time]*agg{}
	for _, r := range verified {
		if r.ActualChurned == nil {
			continue
		}
		key := time.Date(r.ScoreDate.Year(), r.ScoreDate.Month(), 1, 0, 0, 0, 0, time.UTC)
		a := months[key]
		if a == nil {
			a = &agg{}
			months[key] = a
		}
		a.probSum += r.Probability
		a.total++
		if *r.ActualChurned {
			a.churned++
		}
	}

	for month, a := range months {
		predicted := a.probSum / float64(a.total)
		actual := float64(a.churned) / float64(a.total)
		report.Calibration = append(report.Calibration, MonthlyCalibration{
			Month:      month,
			Predicted:  predicted,
			Actual:     actual,
			DriftRatio: math.Abs(predicted-actual) / math.Max(actual, minActualRate),
			Verified:   a.total,
		})
	}
	sort.Slice(report.Calibration, func(i, j int) bool {
		return report.Calibration[i].Month.Before(report.Calibration[j].Month)
	})

	drifted := 0
	for _, c := range report.Calibration {
		if c.DriftRatio > report.ConceptDriftRatio {
			report.ConceptDriftRatio = c.DriftRatio
		}
		if c.DriftRatio <= m.cfg.ConceptDriftRatio {
			continue
		}
		drifted++
		m.log.Warnf("Concept drift in %s: predicted=%.3f actual=%.3f (ratio=%.2f)",
			c.Month.Format("2006-01"), c.Predicted, c.Actual, c.DriftRatio)
		m.publishAlert(ctx, "concept", c.Month.Format("2006-01"), string(PSIAlert),
			c.DriftRatio, m.cfg.ConceptDriftRatio)
	}
	if drifted > 0 {
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("predicted churn rate diverged from actual in %d of %d months",
				drifted, len(report.Calibration)))
	}
}

func (m *Monitor) publishAlert(ctx context.Context, kind, subject, severity string, value, threshold float64) {
	event := &events.DriftAlertEvent{
		BaseEvent: events.NewBaseEvent("monitoring.drift_alert"),
		Kind:      kind,
		Subject:   subject,
		Severity:  severity,
		Value:     value,
		Threshold: threshold,
	}
	if err := m.publisher.PublishDriftAlert(ctx, event); err != nil {
		m.log.Errorf("Failed to publish drift alert: %v", err)
	}
}

func probabilities(records []*prediction.HistoryRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Probability
	}
	return out
}
