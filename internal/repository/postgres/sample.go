package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ sample.Repository = (*SampleRepository)(nil)

// insertChunkSize bounds the multi-row insert size during rebuilds.
const insertChunkSize = 500

// SampleRepository implements sample.Repository. It holds the raw *sqlx.DB
// rather than DBTX because ReplaceAll owns its transaction.
type SampleRepository struct {
	db *sqlx.DB
}

// NewSampleRepository creates a new training sample repository
func NewSampleRepository(db *sqlx.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

type sampleRow struct {
	ID            string          `db:"id"`
	MemberID      int64           `db:"member_id"`
	ReferenceDate time.Time       `db:"reference_date"`
	Horizon       string          `db:"horizon"`
	LabelType     string          `db:"label_type"`
	Churned       bool            `db:"churned_in_30d"`
	Features      json.RawMessage `db:"features"`
	GeneratedAt   time.Time       `db:"generated_at"`
}

// ReplaceAll atomically replaces the entire sample set
func (r *SampleRepository) ReplaceAll(ctx context.Context, samples []*sample.TrainingSample) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin sample replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE training_samples`); err != nil {
		return errors.Wrap(err, "truncate training samples")
	}

	query := `
		INSERT INTO training_samples (
			id, member_id, reference_date, horizon, label_type,
			churned_in_30d, features, generated_at
		) VALUES (
			:id, :member_id, :reference_date, :horizon, :label_type,
			:churned_in_30d, :features, :generated_at
		)
	`

	for start := 0; start < len(samples); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(samples) {
			end = len(samples)
		}

		rows := make([]sampleRow, 0, end-start)
		for _, s := range samples[start:end] {
			features, err := json.Marshal(s.Vector)
			if err != nil {
				return errors.Wrapf(err, "marshal features for member %d", s.MemberID)
			}
			rows = append(rows, sampleRow{
				ID:            s.ID.String(),
				MemberID:      s.MemberID,
				ReferenceDate: s.ReferenceDate,
				Horizon:       s.Horizon.String(),
				LabelType:     s.LabelType.String(),
				Churned:       s.Churned,
				Features:      features,
				GeneratedAt:   s.GeneratedAt,
			})
		}

		if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
			return errors.Wrapf(err, "insert sample chunk at %d", start)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit sample replace")
	}
	return nil
}

// ListWindow returns samples with from <= reference_date < to
func (r *SampleRepository) ListWindow(ctx context.Context, from, to time.Time) ([]*sample.TrainingSample, error) {
	query := `
		SELECT id, member_id, reference_date, horizon, label_type,
		       churned_in_30d, features, generated_at
		FROM training_samples
		WHERE reference_date >= $1 AND reference_date < $2
		ORDER BY reference_date, member_id, horizon
	`

	var rows []sampleRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, errors.Wrap(err, "list samples")
	}

	samples := make([]*sample.TrainingSample, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSample()
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// CountPositives counts churn-labeled samples with from <= reference_date < to
func (r *SampleRepository) CountPositives(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM training_samples
		WHERE reference_date >= $1 AND reference_date < $2 AND churned_in_30d
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, errors.Wrap(err, "count positive samples")
	}
	return count, nil
}

// Bounds returns the earliest and latest reference dates in the store
func (r *SampleRepository) Bounds(ctx context.Context) (time.Time, time.Time, error) {
	query := `SELECT MIN(reference_date), MAX(reference_date) FROM training_samples`

	var earliest, latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query).Scan(&earliest, &latest); err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "sample bounds")
	}
	if !earliest.Valid {
		return time.Time{}, time.Time{}, errors.Wrap(errors.ErrInsufficientData, "sample store is empty")
	}
	return earliest.Time, latest.Time, nil
}

func (row *sampleRow) toSample() (*sample.TrainingSample, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse sample id %s", row.ID)
	}

	s := &sample.TrainingSample{
		ID:            id,
		MemberID:      row.MemberID,
		ReferenceDate: row.ReferenceDate,
		Horizon:       sample.Horizon(row.Horizon),
		LabelType:     sample.LabelType(row.LabelType),
		Churned:       row.Churned,
		GeneratedAt:   row.GeneratedAt,
	}
	if err := json.Unmarshal(row.Features, &s.Vector); err != nil {
		return nil, errors.Wrapf(err, "unmarshal features for member %d", row.MemberID)
	}
	return s, nil
}
