package training

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/model"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/ml"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Release targets checked after training. Misses are logged for the
// operator; they do not block the shadow deployment.
var evaluationTargets = map[string]float64{
	"pr_auc":           0.45,
	"roc_auc":          0.80,
	"brier_score":      0.10, // upper bound
	"precision_at_20p": 0.50,
}

// Orchestrator runs the full training protocol: walk-forward folds, fold-
// local specialists, a meta-learner fit exclusively on out-of-fold
// specialist outputs, Platt calibration on a held-out split, and a final
// refit of the specialists on the entire span. The finished artifact is
// installed as the shadow candidate; promotion to production is a separate,
// atomic step.
type Orchestrator struct {
	samples   sample.Repository
	refs      model.ReferenceStore
	planner   *FoldPlanner
	publisher *events.Publisher
	modelDir  string
	cfg       config.TrainingConfig
	log       *logger.Logger
}

// NewOrchestrator creates a new training orchestrator
func NewOrchestrator(
	samples sample.Repository,
	refs model.ReferenceStore,
	publisher *events.Publisher,
	modelDir string,
	cfg config.TrainingConfig,
) *Orchestrator {
	return &Orchestrator{
		samples:   samples,
		refs:      refs,
		planner:   NewFoldPlanner(samples, cfg),
		publisher: publisher,
		modelDir:  modelDir,
		cfg:       cfg,
		log:       logger.Get().With("component", "trainer"),
	}
}

// Train runs the protocol over samples with reference dates in [from, to).
// Zero bounds default to the full sample store.
func (o *Orchestrator) Train(ctx context.Context, from, to time.Time) (*model.Version, error) {
	if from.IsZero() || to.IsZero() {
		earliest, latest, err := o.samples.Bounds(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "sample store bounds")
		}
		if from.IsZero() {
			from = earliest
		}
		if to.IsZero() {
			to = latest.AddDate(0, 0, 1)
		}
	}

	rows, err := o.samples.ListWindow(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "load training samples")
	}
	full := ml.FromSamples(rows)
	o.log.Infof("Training on %d samples (%d positive) in [%s, %s)",
		full.Len(), full.Positives(), from.Format("2006-01-02"), to.Format("2006-01-02"))

	folds, err := o.planner.Plan(ctx, from, to)
	if err != nil {
		return nil, err
	}

	metaX, metaY, calibX, calibY := o.collectOutOfFold(full, folds)

	final := ml.NewEnsemble()
	final.FitSpecialists(full)
	final.FitMeta(metaX, metaY)
	final.FitCalibrator(calibX, calibY)

	probs := final.CalibratedProbas(calibX)
	final.Metrics = ml.Evaluate(calibY, probs)
	o.logMetrics(final.Metrics)
	o.logMetaCoefficients(final)

	final.Version = "v" + time.Now().UTC().Format("20060102_150405")
	path, err := final.Save(o.modelDir)
	if err != nil {
		return nil, err
	}

	if err := o.refs.SetShadow(ctx, final.Version); err != nil {
		return nil, errors.Wrap(err, "install shadow candidate")
	}
	o.log.Infof("Model %s trained and installed as shadow candidate (trial before promotion)", final.Version)

	for name, value := range final.Metrics {
		metrics.ModelEvaluation.WithLabelValues(final.Version, name).Set(value)
	}

	event := &events.ModelTrainedEvent{
		BaseEvent:    events.NewBaseEvent("model.trained"),
		ModelVersion: final.Version,
		TrainStart:   from.Format("2006-01-02"),
		TrainEnd:     to.Format("2006-01-02"),
		Folds:        len(folds),
		Metrics:      final.Metrics,
	}
	if err := o.publisher.PublishModelTrained(ctx, event); err != nil {
		o.log.Errorf("Failed to publish model trained event: %v", err)
	}

	return &model.Version{
		ID:           final.Version,
		TrainedAt:    time.Now().UTC(),
		TrainStart:   from,
		TrainEnd:     to,
		Folds:        len(folds),
		Metrics:      final.Metrics,
		ArtifactPath: path,
	}, nil
}

// Promote atomically swaps the shadow candidate into production.
func (o *Orchestrator) Promote(ctx context.Context) error {
	version, ok, err := o.refs.Shadow(ctx)
	if err != nil {
		return errors.Wrap(err, "read shadow candidate")
	}
	if !ok {
		return errors.Wrap(errors.ErrNotFound, "no shadow candidate to promote")
	}

	if err := o.refs.PromoteShadow(ctx); err != nil {
		return err
	}
	o.log.Infof("Model %s promoted to production", version)

	event := &events.ModelPromotedEvent{
		BaseEvent:    events.NewBaseEvent("model.promoted"),
		ModelVersion: version,
	}
	if err := o.publisher.PublishModelPromoted(ctx, event); err != nil {
		o.log.Errorf("Failed to publish model promoted event: %v", err)
	}
	return nil
}

// collectOutOfFold fits fold-local specialists and gathers their validation-
// window outputs. The meta-learner only ever sees rows its specialists were
// not trained on; the last fold is withheld again from the meta-learner and
// reserved for the calibrator.
func (o *Orchestrator) collectOutOfFold(full *ml.Dataset, folds []Fold) (metaX [][]float64, metaY []float64, calibX [][]float64, calibY []float64) {
	for i, fold := range folds {
		train := filterByDate(full, fold.TrainStart, fold.TrainEnd)
		val := filterByDate(full, fold.ValStart, fold.ValEnd)
		if train.Len() == 0 || val.Len() == 0 {
			o.log.Warnf("Fold %d skipped: train=%d val=%d rows", fold.Number, train.Len(), val.Len())
			continue
		}

		e := ml.NewEnsemble()
		e.FitSpecialists(train)
		o.logSpecialistScores(fold.Number, e, val)

		rows := e.MetaInputs(val)
		last := i == len(folds)-1
		if last && len(folds) > 1 {
			calibX = append(calibX, rows...)
			calibY = append(calibY, val.Y...)
			continue
		}
		metaX = append(metaX, rows...)
		metaY = append(metaY, val.Y...)
		if last {
			// Single-fold degenerate case: reuse the fold for calibration.
			o.log.Warn("Only one fold available; calibration split overlaps meta training")
			calibX = append(calibX, rows...)
			calibY = append(calibY, val.Y...)
		}
	}
	return metaX, metaY, calibX, calibY
}

func (o *Orchestrator) logSpecialistScores(foldNum int, e *ml.Ensemble, val *ml.Dataset) {
	for _, s := range e.Specialists {
		probs := s.Probas(val)
		o.log.Infof("Fold %d %s: roc_auc=%.4f pr_auc=%.4f",
			foldNum, s.Name, ml.ROCAUC(val.Y, probs), ml.PRAUC(val.Y, probs))
	}
}

func (o *Orchestrator) logMetrics(metrics map[string]float64) {
	for name, value := range metrics {
		target, ok := evaluationTargets[name]
		status := ""
		if ok {
			pass := value >= target
			if name == "brier_score" {
				pass = value <= target
			}
			if pass {
				status = " PASS"
			} else {
				status = " FAIL"
			}
		}
		o.log.Infof("Evaluation %s: %.4f%s", name, value, status)
	}
}

func (o *Orchestrator) logMetaCoefficients(e *ml.Ensemble) {
	names := make([]string, 0, e.MetaDim())
	for _, s := range e.Specialists {
		names = append(names, s.Name)
	}
	names = append(names, "days_since_last_visit", "days_until_contract_end", "visit_trend")
	for i, name := range names {
		if i < len(e.Meta.Weights) {
			o.log.Infof("Meta coefficient %s: %.4f", name, e.Meta.Weights[i])
		}
	}
}

// filterByDate selects dataset rows with from <= date < to. Rows arrive
// date-ordered from the sample store.
func filterByDate(ds *ml.Dataset, from, to time.Time) *ml.Dataset {
	lo := 0
	for lo < ds.Len() && ds.Dates[lo].Before(from) {
		lo++
	}
	hi := lo
	for hi < ds.Len() && ds.Dates[hi].Before(to) {
		hi++
	}
	return ds.Slice(lo, hi)
}
