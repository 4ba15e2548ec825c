package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/clickhouse"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ feature.SnapshotRepository = (*FeatureSnapshotRepository)(nil)

// FeatureSnapshotRepository implements feature.SnapshotRepository using
// ClickHouse. Writes go through a BatchWriter: one row per scored member per
// day adds up, and ClickHouse wants wide inserts.
type FeatureSnapshotRepository struct {
	conn   driver.Conn
	writer *clickhouse.BatchWriter
}

// NewFeatureSnapshotRepository creates a new feature snapshot repository
func NewFeatureSnapshotRepository(conn driver.Conn) *FeatureSnapshotRepository {
	r := &FeatureSnapshotRepository{conn: conn}
	r.writer = clickhouse.NewBatchWriter(clickhouse.BatchWriterConfig{
		FlushFunc:    r.flush,
		TableName:    "feature_snapshots",
		MaxBatchSize: 1000,
		MaxAge:       10 * time.Second,
	})
	return r
}

// Start begins the background flush loop
func (r *FeatureSnapshotRepository) Start(ctx context.Context) {
	r.writer.Start(ctx)
}

// Stop flushes remaining rows and stops the background loop
func (r *FeatureSnapshotRepository) Stop(ctx context.Context) error {
	return r.writer.Stop(ctx)
}

// WriteBatch appends a batch of snapshots
func (r *FeatureSnapshotRepository) WriteBatch(ctx context.Context, snaps []*feature.Snapshot) error {
	for _, s := range snaps {
		if err := r.writer.Add(ctx, s); err != nil {
			return errors.Wrap(err, "buffer feature snapshot")
		}
	}
	return r.writer.Flush(ctx)
}

// flush performs the actual INSERT for a buffered batch
func (r *FeatureSnapshotRepository) flush(ctx context.Context, items []interface{}) error {
	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO feature_snapshots (
			member_id, score_date, model_version,
			tenure_days, spell_duration_days, contracts_in_spell,
			prior_spells, prior_churns,
			visits_7d, visits_14d, visits_30d, visits_90d,
			days_since_last_visit, visit_trend, avg_weekly_visits_90d,
			visit_gap_stddev_90d, weekend_ratio_90d, has_ever_visited,
			peak_hour_ratio_90d, visited_other_branch,
			days_until_contract_end, contract_expiring_30d, days_since_last_payment,
			avg_monthly_payment_90d, payment_regularity_90d, has_open_balance, is_defaulter,
			month_of_year, resolution_signup,
			age, gender,
			had_segment_migration
		)
	`)
	if err != nil {
		return errors.Wrap(err, "prepare snapshot batch")
	}

	for _, item := range items {
		s, ok := item.(*feature.Snapshot)
		if !ok {
			continue
		}
		v := s.Vector
		err := batch.Append(
			s.MemberID, s.ScoreDate, s.ModelVersion,
			v.TenureDays, v.SpellDurationDays, v.ContractsInSpell,
			v.PriorSpells, v.PriorChurns,
			v.Visits7d, v.Visits14d, v.Visits30d, v.Visits90d,
			v.DaysSinceLastVisit, v.VisitTrend, v.AvgWeeklyVisits90d,
			v.VisitGapStdDev90d, v.WeekendRatio90d, v.HasEverVisited,
			v.PeakHourRatio90d, v.VisitedOtherBranch,
			v.DaysUntilContractEnd, v.ContractExpiring30d, v.DaysSinceLastPayment,
			v.AvgMonthlyPayment90d, v.PaymentRegularity90d, v.HasOpenBalance, v.IsDefaulter,
			v.MonthOfYear, v.ResolutionSignup,
			v.Age, v.Gender,
			v.HadSegmentMigration,
		)
		if err != nil {
			return errors.Wrap(err, "append snapshot row")
		}
	}

	return batch.Send()
}

// ColumnWindow returns the non-null values of one feature for snapshots with
// from <= score_date < to. The feature name is validated against the
// registry before being interpolated, since ClickHouse cannot parameterize
// identifiers.
func (r *FeatureSnapshotRepository) ColumnWindow(ctx context.Context, featureName string, from, to time.Time) ([]float64, error) {
	if !knownFeature(featureName) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown feature %s", featureName)
	}

	query := `
		SELECT ` + featureName + `
		FROM feature_snapshots
		WHERE score_date >= $1 AND score_date < $2
		  AND ` + featureName + ` IS NOT NULL
	`

	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "query snapshot column %s", featureName)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		// Nullable columns scan through a pointer even under IS NOT NULL.
		var v *float64
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrapf(err, "scan snapshot column %s", featureName)
		}
		if v != nil {
			values = append(values, *v)
		}
	}
	return values, rows.Err()
}

func knownFeature(name string) bool {
	for _, f := range feature.AllFeatures {
		if f == name {
			return true
		}
	}
	return false
}
