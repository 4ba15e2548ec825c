package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ member.Repository = (*MemberRepository)(nil)

// MemberRepository implements member.Repository over the replicated member
// identity table. Source facts are read-only for the pipeline.
type MemberRepository struct {
	db DBTX
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetByID retrieves a member by ID. Returns nil without error when the
// member has no registration record; the feature computer decides how to
// treat that.
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*member.Member, error) {
	query := `
		SELECT id, registered_at, birth_date, gender, home_branch_id
		FROM members
		WHERE id = $1
	`

	m := &member.Member{}
	err := r.db.GetContext(ctx, m, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get member by id")
	}
	return m, nil
}

// ListActiveIDs returns members holding a contract that covers the date
func (r *MemberRepository) ListActiveIDs(ctx context.Context, onDate time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT member_id
		FROM member_contracts
		WHERE start_date <= $1 AND end_date >= $1
		ORDER BY member_id
	`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, onDate); err != nil {
		return nil, errors.Wrap(err, "list active member ids")
	}
	return ids, nil
}
