package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
)

// VisitBuilder provides a fluent API for creating Visit entities
type VisitBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *member.Visit
}

// NewVisitBuilder creates a new VisitBuilder with sensible defaults
func NewVisitBuilder(db DBTX, ctx context.Context) *VisitBuilder {
	return &VisitBuilder{
		db:  db,
		ctx: ctx,
		entity: &member.Visit{
			BranchID:  1,
			VisitedAt: time.Now().UTC().AddDate(0, 0, -3),
		},
	}
}

// WithMemberID sets the visiting member
func (b *VisitBuilder) WithMemberID(id int64) *VisitBuilder {
	b.entity.MemberID = id
	return b
}

// WithBranchID sets the branch
func (b *VisitBuilder) WithBranchID(id int64) *VisitBuilder {
	b.entity.BranchID = id
	return b
}

// WithVisitedAt sets the visit timestamp
func (b *VisitBuilder) WithVisitedAt(t time.Time) *VisitBuilder {
	b.entity.VisitedAt = t
	return b
}

// Insert persists the visit and returns it
func (b *VisitBuilder) Insert() (*member.Visit, error) {
	query := `
		INSERT INTO member_visits (member_id, branch_id, visited_at)
		VALUES ($1, $2, $3)`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.MemberID, b.entity.BranchID, b.entity.VisitedAt)
	if err != nil {
		return nil, fmt.Errorf("seed visit: %w", err)
	}
	return b.entity, nil
}

// InsertSeries inserts count visits walking back from the latest, spaced by interval.
func (b *VisitBuilder) InsertSeries(count int, interval time.Duration) ([]*member.Visit, error) {
	visits := make([]*member.Visit, 0, count)
	at := b.entity.VisitedAt
	for i := 0; i < count; i++ {
		v := *b.entity
		v.VisitedAt = at.Add(-time.Duration(i) * interval)
		query := `
			INSERT INTO member_visits (member_id, branch_id, visited_at)
			VALUES ($1, $2, $3)`
		if _, err := b.db.ExecContext(b.ctx, query, v.MemberID, v.BranchID, v.VisitedAt); err != nil {
			return nil, fmt.Errorf("seed visit series: %w", err)
		}
		visits = append(visits, &v)
	}
	return visits, nil
}
