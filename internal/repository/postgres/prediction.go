package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ prediction.Repository = (*PredictionRepository)(nil)

// PredictionRepository implements prediction.Repository over the
// current-state table read by the retention CRM.
type PredictionRepository struct {
	db *sqlx.DB
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

type predictionRow struct {
	ID           string    `db:"id"`
	MemberID     int64     `db:"member_id"`
	BranchID     int64     `db:"branch_id"`
	ScoreDate    time.Time `db:"score_date"`
	ScoredAt     time.Time `db:"scored_at"`
	Probability  float64   `db:"churn_probability"`
	Tier         string    `db:"risk_tier"`
	ChurnType    string    `db:"churn_type"`
	Reasons      []byte    `db:"reasons"`
	PlaybookID   string    `db:"playbook_id"`
	ModelVersion string    `db:"model_version"`

	DaysUntilContractEnd *int64   `db:"days_until_contract_end"`
	DaysSinceLastVisit   *int64   `db:"days_since_last_visit"`
	AvgWeeklyVisits      *float64 `db:"avg_weekly_visits"`
}

// ReplaceForDate deletes the date's rows and inserts the fresh batch in a
// single transaction
func (r *PredictionRepository) ReplaceForDate(ctx context.Context, scoreDate time.Time, preds []*prediction.Prediction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin prediction replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM member_predictions WHERE score_date = $1`, scoreDate); err != nil {
		return errors.Wrap(err, "delete predictions for date")
	}

	query := `
		INSERT INTO member_predictions (
			id, member_id, branch_id, score_date, scored_at,
			churn_probability, risk_tier, churn_type, reasons,
			playbook_id, model_version,
			days_until_contract_end, days_since_last_visit, avg_weekly_visits
		) VALUES (
			:id, :member_id, :branch_id, :score_date, :scored_at,
			:churn_probability, :risk_tier, :churn_type, :reasons,
			:playbook_id, :model_version,
			:days_until_contract_end, :days_since_last_visit, :avg_weekly_visits
		)
	`

	for start := 0; start < len(preds); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(preds) {
			end = len(preds)
		}

		rows := make([]predictionRow, 0, end-start)
		for _, p := range preds[start:end] {
			reasons, err := json.Marshal(p.Reasons)
			if err != nil {
				return errors.Wrapf(err, "marshal reasons for member %d", p.MemberID)
			}
			rows = append(rows, predictionRow{
				ID:           p.ID.String(),
				MemberID:     p.MemberID,
				BranchID:     p.BranchID,
				ScoreDate:    p.ScoreDate,
				ScoredAt:     p.ScoredAt,
				Probability:  p.Probability,
				Tier:         p.Tier.String(),
				ChurnType:    p.ChurnType.String(),
				Reasons:      reasons,
				PlaybookID:   p.PlaybookID,
				ModelVersion: p.ModelVersion,

				DaysUntilContractEnd: p.DaysUntilContractEnd,
				DaysSinceLastVisit:   p.DaysSinceLastVisit,
				AvgWeeklyVisits:      p.AvgWeeklyVisits,
			})
		}

		if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
			return errors.Wrapf(err, "insert prediction chunk at %d", start)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit prediction replace")
	}
	return nil
}

// ListByDate returns predictions for a score date, ordered by member
func (r *PredictionRepository) ListByDate(ctx context.Context, scoreDate time.Time) ([]*prediction.Prediction, error) {
	query := `
		SELECT id, member_id, branch_id, score_date, scored_at,
		       churn_probability, risk_tier, churn_type, reasons,
		       playbook_id, model_version,
		       days_until_contract_end, days_since_last_visit, avg_weekly_visits
		FROM member_predictions
		WHERE score_date = $1
		ORDER BY member_id
	`

	var rows []predictionRow
	if err := r.db.SelectContext(ctx, &rows, query, scoreDate); err != nil {
		return nil, errors.Wrap(err, "list predictions")
	}

	preds := make([]*prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPrediction()
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func (row *predictionRow) toPrediction() (*prediction.Prediction, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse prediction id %s", row.ID)
	}

	p := &prediction.Prediction{
		ID:           id,
		MemberID:     row.MemberID,
		BranchID:     row.BranchID,
		ScoreDate:    row.ScoreDate,
		ScoredAt:     row.ScoredAt,
		Probability:  row.Probability,
		Tier:         prediction.RiskTier(row.Tier),
		ChurnType:    prediction.ChurnType(row.ChurnType),
		PlaybookID:   row.PlaybookID,
		ModelVersion: row.ModelVersion,

		DaysUntilContractEnd: row.DaysUntilContractEnd,
		DaysSinceLastVisit:   row.DaysSinceLastVisit,
		AvgWeeklyVisits:      row.AvgWeeklyVisits,
	}
	if len(row.Reasons) > 0 {
		if err := json.Unmarshal(row.Reasons, &p.Reasons); err != nil {
			return nil, errors.Wrapf(err, "unmarshal reasons for member %d", row.MemberID)
		}
	}
	return p, nil
}
