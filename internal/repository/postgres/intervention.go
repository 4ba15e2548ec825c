package postgres

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/intervention"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ intervention.Repository = (*InterventionRepository)(nil)

// InterventionRepository implements intervention.Repository over the
// execution log written by the retention CRM.
type InterventionRepository struct {
	db DBTX
}

// NewInterventionRepository creates a new intervention repository
func NewInterventionRepository(db DBTX) *InterventionRepository {
	return &InterventionRepository{db: db}
}

// ExistsForPrediction reports whether any intervention was logged against
// the member's prediction of the given score date
func (r *InterventionRepository) ExistsForPrediction(ctx context.Context, memberID int64, scoreDate time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM intervention_executions
			WHERE member_id = $1 AND prediction_date = $2
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, memberID, scoreDate); err != nil {
		return false, errors.Wrap(err, "intervention exists")
	}
	return exists, nil
}
