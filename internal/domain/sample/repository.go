package sample

import (
	"context"
	"time"
)

// Repository persists the derived, disposable training-sample artifact.
type Repository interface {
	// ReplaceAll atomically replaces the entire sample set. There is no
	// incremental append: every rebuild regenerates the full history.
	ReplaceAll(ctx context.Context, samples []*TrainingSample) error
	// ListWindow returns samples with from <= reference_date < to,
	// ordered by reference date then member.
	ListWindow(ctx context.Context, from, to time.Time) ([]*TrainingSample, error)
	// CountPositives counts churn-labeled samples with
	// from <= reference_date < to.
	CountPositives(ctx context.Context, from, to time.Time) (int, error)
	// Bounds returns the earliest and latest reference dates in the store.
	Bounds(ctx context.Context) (earliest, latest time.Time, err error)
}
