package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport"
)

// PaymentBuilder provides a fluent API for creating Payment entities
type PaymentBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *member.Payment
}

// NewPaymentBuilder creates a new PaymentBuilder defaulting to a payment
// that was due two weeks ago and confirmed on time.
func NewPaymentBuilder(db DBTX, ctx context.Context) *PaymentBuilder {
	due := time.Now().UTC().AddDate(0, 0, -14)
	paid := due
	return &PaymentBuilder{
		db:  db,
		ctx: ctx,
		entity: &member.Payment{
			ID:      int64(testsupport.NextSequence()),
			Amount:  decimal.NewFromFloat(49.90),
			DueDate: due,
			PaidAt:  &paid,
		},
	}
}

// WithMemberID sets the paying member
func (b *PaymentBuilder) WithMemberID(id int64) *PaymentBuilder {
	b.entity.MemberID = id
	return b
}

// WithAmount sets the payment amount
func (b *PaymentBuilder) WithAmount(amount float64) *PaymentBuilder {
	b.entity.Amount = decimal.NewFromFloat(amount)
	return b
}

// WithDueDate sets when the payment was due
func (b *PaymentBuilder) WithDueDate(t time.Time) *PaymentBuilder {
	b.entity.DueDate = t
	return b
}

// PaidAt sets the confirmation timestamp
func (b *PaymentBuilder) PaidAt(t time.Time) *PaymentBuilder {
	b.entity.PaidAt = &t
	return b
}

// Unpaid marks the payment as still open
func (b *PaymentBuilder) Unpaid() *PaymentBuilder {
	b.entity.PaidAt = nil
	return b
}

// Insert persists the payment and returns it
func (b *PaymentBuilder) Insert() (*member.Payment, error) {
	query := `
		INSERT INTO member_payments (id, member_id, amount, due_date, paid_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := b.db.ExecContext(b.ctx, query,
		b.entity.ID, b.entity.MemberID, b.entity.Amount,
		b.entity.DueDate, b.entity.PaidAt)
	if err != nil {
		return nil, fmt.Errorf("seed payment: %w", err)
	}
	return b.entity, nil
}
