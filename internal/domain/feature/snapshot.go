package feature

import (
	"context"
	"time"
)

// Snapshot is the feature vector captured for one member at scoring time.
// Snapshots feed the drift monitor: the scored population's distributions
// are compared against the model's training-window distributions.
type Snapshot struct {
	MemberID     int64
	ScoreDate    time.Time
	ModelVersion string
	Vector       Vector
}

// SnapshotRepository stores scoring-time snapshots in the analytical store.
type SnapshotRepository interface {
	// WriteBatch appends a batch of snapshots.
	WriteBatch(ctx context.Context, snaps []*Snapshot) error
	// ColumnWindow returns the non-null values of one feature for snapshots
	// with from <= score_date < to.
	ColumnWindow(ctx context.Context, featureName string, from, to time.Time) ([]float64, error)
}
