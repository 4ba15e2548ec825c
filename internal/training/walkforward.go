package training

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Fold is one walk-forward step: an expanding train window followed by a
// validation window. Validation always starts where training ends, so no
// fold ever looks forward.
type Fold struct {
	Number     int
	TrainStart time.Time // inclusive
	TrainEnd   time.Time // exclusive; equals ValStart
	ValStart   time.Time // inclusive
	ValEnd     time.Time // exclusive
	Positives  int       // churn samples inside the validation window
}

// FoldPlanner builds the walk-forward fold sequence. Validation windows
// auto-expand month by month until they hold at least the configured minimum
// number of churn samples, so folds stay statistically meaningful regardless
// of data volume.
type FoldPlanner struct {
	samples sample.Repository
	cfg     config.TrainingConfig
	log     *logger.Logger
}

// NewFoldPlanner creates a new fold planner
func NewFoldPlanner(samples sample.Repository, cfg config.TrainingConfig) *FoldPlanner {
	return &FoldPlanner{
		samples: samples,
		cfg:     cfg,
		log:     logger.Get().With("component", "fold_planner"),
	}
}

// Plan generates folds over sample reference dates in [start, end).
// Returns InsufficientDataError when not even one valid fold can be formed.
func (p *FoldPlanner) Plan(ctx context.Context, start, end time.Time) ([]Fold, error) {
	var folds []Fold

	valStart := monthStart(start).AddDate(0, p.cfg.WarmupMonths, 0)
	number := 1

	for valStart.Before(end) {
		valEnd := valStart.AddDate(0, p.cfg.ValidationWindowMonths, 0)

		// Expand until the window holds enough churn events.
		var positives int
		for {
			if valEnd.After(end) {
				valEnd = end
			}
			n, err := p.samples.CountPositives(ctx, valStart, valEnd)
			if err != nil {
				return nil, errors.Wrap(err, "count fold positives")
			}
			positives = n
			if positives >= p.cfg.MinPositivesPerFold || valEnd.Equal(end) {
				break
			}
			valEnd = valEnd.AddDate(0, p.cfg.ValidationWindowMonths, 0)
		}

		if positives < p.cfg.MinPositivesPerFold {
			// Even the full remaining span is insufficient.
			if len(folds) == 0 {
				return nil, &errors.InsufficientDataError{
					Fold:         number,
					Positives:    positives,
					MinPositives: p.cfg.MinPositivesPerFold,
				}
			}
			// A trailing remainder too thin to stand alone is merged into
			// the last fold's validation window so its churns still count.
			folds[len(folds)-1].ValEnd = end
			p.log.Warnf("Fold %d remainder (%d positives) merged into fold %d",
				number, positives, folds[len(folds)-1].Number)
			break
		}

		folds = append(folds, Fold{
			Number:     number,
			TrainStart: start,
			TrainEnd:   valStart,
			ValStart:   valStart,
			ValEnd:     valEnd,
			Positives:  positives,
		})
		p.log.Infof("Fold %d: train [%s, %s) validate [%s, %s) (%d positives)",
			number,
			start.Format("2006-01-02"), valStart.Format("2006-01-02"),
			valStart.Format("2006-01-02"), valEnd.Format("2006-01-02"),
			positives)

		valStart = valEnd
		number++
	}

	if len(folds) == 0 {
		return nil, &errors.InsufficientDataError{
			Fold:         1,
			Positives:    0,
			MinPositives: p.cfg.MinPositivesPerFold,
		}
	}
	return folds, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
