package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ prediction.HistoryRepository = (*HistoryRepository)(nil)

// HistoryRepository implements prediction.HistoryRepository. History rows
// are append-only; their verification columns are written exactly once.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new prediction history repository
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append adds history rows for a score date. The delete-then-insert keeps a
// re-run of the same date from duplicating rows while leaving verified rows
// of other dates untouched.
func (r *HistoryRepository) Append(ctx context.Context, scoreDate time.Time, records []*prediction.HistoryRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin history append")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM member_prediction_history WHERE score_date = $1 AND verified_at IS NULL`,
		scoreDate); err != nil {
		return errors.Wrap(err, "clear unverified history for date")
	}

	query := `
		INSERT INTO member_prediction_history (
			id, member_id, branch_id, score_date, scored_at,
			churn_probability, risk_tier, churn_type, model_version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (id) DO NOTHING
	`

	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, query,
			rec.ID, rec.MemberID, rec.BranchID, rec.ScoreDate, rec.ScoredAt,
			rec.Probability, rec.Tier, rec.ChurnType, rec.ModelVersion,
		); err != nil {
			return errors.Wrapf(err, "insert history row for member %d", rec.MemberID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit history append")
	}
	return nil
}

// ListUnverified returns pending records with score_date <= asOfLimit
func (r *HistoryRepository) ListUnverified(ctx context.Context, asOfLimit time.Time) ([]*prediction.HistoryRecord, error) {
	query := `
		SELECT id, member_id, branch_id, score_date, scored_at,
		       churn_probability, risk_tier, churn_type, model_version,
		       actual_churned, outcome_category, tier_movement, verified_at
		FROM member_prediction_history
		WHERE verified_at IS NULL AND score_date <= $1
		ORDER BY score_date, member_id
	`

	var records []*prediction.HistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, asOfLimit); err != nil {
		return nil, errors.Wrap(err, "list unverified history")
	}
	return records, nil
}

// ApplyVerification fills the verification columns of a pending record.
// The WHERE clause enforces single-fire: a concurrent verifier loses the
// race and reports false.
func (r *HistoryRepository) ApplyVerification(ctx context.Context, v *prediction.Verification) (bool, error) {
	query := `
		UPDATE member_prediction_history SET
			actual_churned = $2,
			outcome_category = $3,
			tier_movement = $4,
			verified_at = $5
		WHERE id = $1 AND verified_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		v.RecordID, v.ActualChurned, v.OutcomeCategory, v.TierMovement, v.VerifiedAt)
	if err != nil {
		return false, errors.Wrap(err, "apply verification")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "verification rows affected")
	}
	return rows > 0, nil
}

// LatestTierAfter returns the member's most recent tier strictly after the
// given score date
func (r *HistoryRepository) LatestTierAfter(ctx context.Context, memberID int64, after time.Time) (prediction.RiskTier, bool, error) {
	query := `
		SELECT risk_tier
		FROM member_prediction_history
		WHERE member_id = $1 AND score_date > $2
		ORDER BY score_date DESC
		LIMIT 1
	`

	var tier string
	err := r.db.GetContext(ctx, &tier, query, memberID, after)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "latest tier after")
	}
	return prediction.RiskTier(tier), true, nil
}

// ListVerifiedSince returns verified records with score_date >= since
func (r *HistoryRepository) ListVerifiedSince(ctx context.Context, since time.Time) ([]*prediction.HistoryRecord, error) {
	query := `
		SELECT id, member_id, branch_id, score_date, scored_at,
		       churn_probability, risk_tier, churn_type, model_version,
		       actual_churned, outcome_category, tier_movement, verified_at
		FROM member_prediction_history
		WHERE verified_at IS NOT NULL AND score_date >= $1
		ORDER BY score_date, member_id
	`

	var records []*prediction.HistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, since); err != nil {
		return nil, errors.Wrap(err, "list verified history")
	}
	return records, nil
}

// ListWindow returns all records with since <= score_date < until
func (r *HistoryRepository) ListWindow(ctx context.Context, since, until time.Time) ([]*prediction.HistoryRecord, error) {
	query := `
		SELECT id, member_id, branch_id, score_date, scored_at,
		       churn_probability, risk_tier, churn_type, model_version,
		       actual_churned, outcome_category, tier_movement, verified_at
		FROM member_prediction_history
		WHERE score_date >= $1 AND score_date < $2
		ORDER BY score_date, member_id
	`

	var records []*prediction.HistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, since, until); err != nil {
		return nil, errors.Wrap(err, "list history window")
	}
	return records, nil
}
