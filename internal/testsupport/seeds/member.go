package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport"
)

// MemberBuilder provides a fluent API for creating Member entities
type MemberBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *member.Member
}

// NewMemberBuilder creates a new MemberBuilder with sensible defaults
func NewMemberBuilder(db DBTX, ctx context.Context) *MemberBuilder {
	birth := time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC)
	return &MemberBuilder{
		db:  db,
		ctx: ctx,
		entity: &member.Member{
			ID:           testsupport.UniqueMemberID(),
			RegisteredAt: time.Now().UTC().AddDate(-1, 0, 0),
			BirthDate:    &birth,
			Gender:       "F",
			HomeBranchID: 1,
		},
	}
}

// WithID sets a specific member ID
func (b *MemberBuilder) WithID(id int64) *MemberBuilder {
	b.entity.ID = id
	return b
}

// WithRegisteredAt sets the registration timestamp
func (b *MemberBuilder) WithRegisteredAt(t time.Time) *MemberBuilder {
	b.entity.RegisteredAt = t
	return b
}

// WithBirthDate sets the birth date
func (b *MemberBuilder) WithBirthDate(t time.Time) *MemberBuilder {
	b.entity.BirthDate = &t
	return b
}

// WithoutBirthDate clears the birth date
func (b *MemberBuilder) WithoutBirthDate() *MemberBuilder {
	b.entity.BirthDate = nil
	return b
}

// WithGender sets the gender marker
func (b *MemberBuilder) WithGender(g string) *MemberBuilder {
	b.entity.Gender = g
	return b
}

// WithHomeBranch sets the home branch
func (b *MemberBuilder) WithHomeBranch(id int64) *MemberBuilder {
	b.entity.HomeBranchID = id
	return b
}

// Insert persists the member and returns it
func (b *MemberBuilder) Insert() (*member.Member, error) {
	query := `
		INSERT INTO members (id, registered_at, birth_date, gender, home_branch_id)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.ID, b.entity.RegisteredAt, b.entity.BirthDate,
		b.entity.Gender, b.entity.HomeBranchID)
	if err != nil {
		return nil, fmt.Errorf("seed member: %w", err)
	}
	return b.entity, nil
}
