package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport"
)

// ContractBuilder provides a fluent API for creating Contract entities
type ContractBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *member.Contract
}

// NewContractBuilder creates a new ContractBuilder with sensible defaults:
// a six month GYM contract that is currently active.
func NewContractBuilder(db DBTX, ctx context.Context) *ContractBuilder {
	start := time.Now().UTC().AddDate(0, -3, 0)
	return &ContractBuilder{
		db:  db,
		ctx: ctx,
		entity: &member.Contract{
			ID:           int64(testsupport.NextSequence()),
			Segment:      "GYM",
			StartDate:    start,
			EndDate:      start.AddDate(0, 6, 0),
			MonthlyPrice: decimal.NewFromFloat(49.90),
		},
	}
}

// WithMemberID sets the contract holder
func (b *ContractBuilder) WithMemberID(id int64) *ContractBuilder {
	b.entity.MemberID = id
	return b
}

// WithSegment sets the product segment
func (b *ContractBuilder) WithSegment(segment string) *ContractBuilder {
	b.entity.Segment = segment
	return b
}

// WithDates sets the contract period
func (b *ContractBuilder) WithDates(start, end time.Time) *ContractBuilder {
	b.entity.StartDate = start
	b.entity.EndDate = end
	return b
}

// WithMonthlyPrice sets the monthly price
func (b *ContractBuilder) WithMonthlyPrice(price float64) *ContractBuilder {
	b.entity.MonthlyPrice = decimal.NewFromFloat(price)
	return b
}

// EndingIn sets the contract to end the given number of days from now
func (b *ContractBuilder) EndingIn(days int) *ContractBuilder {
	b.entity.EndDate = time.Now().UTC().AddDate(0, 0, days)
	return b
}

// Insert persists the contract and returns it
func (b *ContractBuilder) Insert() (*member.Contract, error) {
	query := `
		INSERT INTO member_contracts (id, member_id, segment, start_date, end_date, monthly_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.ID, b.entity.MemberID, b.entity.Segment,
		b.entity.StartDate, b.entity.EndDate, b.entity.MonthlyPrice)
	if err != nil {
		return nil, fmt.Errorf("seed contract: %w", err)
	}
	return b.entity, nil
}
