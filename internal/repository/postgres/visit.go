package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ member.VisitRepository = (*VisitRepository)(nil)

// VisitRepository implements member.VisitRepository over the turnstile
// event table.
type VisitRepository struct {
	db DBTX
}

// NewVisitRepository creates a new visit repository
func NewVisitRepository(db DBTX) *VisitRepository {
	return &VisitRepository{db: db}
}

// ListWindow returns visits within [from, to], oldest first
func (r *VisitRepository) ListWindow(ctx context.Context, memberID int64, from, to time.Time) ([]member.Visit, error) {
	query := `
		SELECT member_id, branch_id, visited_at
		FROM member_visits
		WHERE member_id = $1 AND visited_at >= $2 AND visited_at <= $3
		ORDER BY visited_at
	`

	var visits []member.Visit
	if err := r.db.SelectContext(ctx, &visits, query, memberID, from, to); err != nil {
		return nil, errors.Wrap(err, "list visits")
	}
	return visits, nil
}

// LastVisitAt returns the most recent visit on or before asOf, nil when the
// member has never visited
func (r *VisitRepository) LastVisitAt(ctx context.Context, memberID int64, asOf time.Time) (*time.Time, error) {
	query := `
		SELECT visited_at
		FROM member_visits
		WHERE member_id = $1 AND visited_at <= $2
		ORDER BY visited_at DESC
		LIMIT 1
	`

	var at time.Time
	err := r.db.GetContext(ctx, &at, query, memberID, asOf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "last visit")
	}
	return &at, nil
}

// VisitedOtherBranch reports any visit at a branch other than home on or
// before asOf
func (r *VisitRepository) VisitedOtherBranch(ctx context.Context, memberID, homeBranchID int64, asOf time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM member_visits
			WHERE member_id = $1 AND branch_id != $2 AND visited_at <= $3
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, memberID, homeBranchID, asOf); err != nil {
		return false, errors.Wrap(err, "visited other branch")
	}
	return exists, nil
}
