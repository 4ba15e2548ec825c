package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

func TestFeatureSnapshotRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	helper := testsupport.NewClickHouseTestHelper(t, testsupport.GetConfig().ClickHouse)
	repo := NewFeatureSnapshotRepository(helper.Client().Conn())
	ctx := context.Background()

	// Score dates far from other suites keep ColumnWindow reads isolated
	// in the shared table.
	scoreDate := time.Date(2031, 7, 1, 0, 0, 0, 0, time.UTC)
	helper.RegisterTableCleanup(t, "feature_snapshots", "score_date >= '2031-01-01'")

	t.Run("WriteBatch and ColumnWindow roundtrip", func(t *testing.T) {
		snaps := testsupport.NewSnapshotFixture().
			WithScoreDate(scoreDate).
			WithVisits30d(6).
			BuildMany(5)
		require.NoError(t, repo.WriteBatch(ctx, snaps))

		values, err := repo.ColumnWindow(ctx, feature.Visits30d, scoreDate, scoreDate.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, values, 5)
		for _, v := range values {
			assert.Equal(t, 6.0, v)
		}
	})

	t.Run("ColumnWindow upper bound is exclusive", func(t *testing.T) {
		later := scoreDate.AddDate(0, 1, 0)
		snap := testsupport.NewSnapshotFixture().
			WithScoreDate(later).
			WithVisits30d(2).
			Build()
		require.NoError(t, repo.WriteBatch(ctx, []*feature.Snapshot{snap}))

		values, err := repo.ColumnWindow(ctx, feature.Visits30d, scoreDate, later)
		require.NoError(t, err)
		assert.Len(t, values, 5, "snapshot on the upper bound stays out")
	})

	t.Run("ColumnWindow drops null values", func(t *testing.T) {
		nullDate := scoreDate.AddDate(0, 2, 0)

		withTrend := testsupport.NewSnapshotFixture().WithScoreDate(nullDate).Build()
		withoutTrend := testsupport.NewSnapshotFixture().WithScoreDate(nullDate).Build()
		withoutTrend.Vector.VisitTrend = nil

		require.NoError(t, repo.WriteBatch(ctx, []*feature.Snapshot{withTrend, withoutTrend}))

		values, err := repo.ColumnWindow(ctx, feature.VisitTrend, nullDate, nullDate.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, 0.85, values[0])
	})

	t.Run("ColumnWindow rejects unknown feature names", func(t *testing.T) {
		_, err := repo.ColumnWindow(ctx, "1; DROP TABLE feature_snapshots", scoreDate, scoreDate.AddDate(0, 0, 1))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})
}
