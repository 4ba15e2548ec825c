package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time checks
var (
	_ member.ContractRepository = (*ContractRepository)(nil)
	_ member.PaymentRepository  = (*PaymentRepository)(nil)
)

// ContractRepository implements member.ContractRepository
type ContractRepository struct {
	db DBTX
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db DBTX) *ContractRepository {
	return &ContractRepository{db: db}
}

// ActiveAt returns the contract covering the date, or nil when none.
// Overlapping contracts resolve to the one ending last.
func (r *ContractRepository) ActiveAt(ctx context.Context, memberID int64, onDate time.Time) (*member.Contract, error) {
	query := `
		SELECT id, member_id, segment, start_date, end_date, monthly_price
		FROM member_contracts
		WHERE member_id = $1 AND start_date <= $2 AND end_date >= $2
		ORDER BY end_date DESC
		LIMIT 1
	`

	c := &member.Contract{}
	err := r.db.GetContext(ctx, c, query, memberID, onDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "active contract")
	}
	return c, nil
}

// PaymentRepository implements member.PaymentRepository
type PaymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ListWindow returns payments with due dates within [from, to]
func (r *PaymentRepository) ListWindow(ctx context.Context, memberID int64, from, to time.Time) ([]member.Payment, error) {
	query := `
		SELECT id, member_id, amount, due_date, paid_at
		FROM member_payments
		WHERE member_id = $1 AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date
	`

	var payments []member.Payment
	if err := r.db.SelectContext(ctx, &payments, query, memberID, from, to); err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	return payments, nil
}

// LastPaidAt returns the most recent confirmed payment on or before asOf
func (r *PaymentRepository) LastPaidAt(ctx context.Context, memberID int64, asOf time.Time) (*time.Time, error) {
	query := `
		SELECT paid_at
		FROM member_payments
		WHERE member_id = $1 AND paid_at IS NOT NULL AND paid_at <= $2
		ORDER BY paid_at DESC
		LIMIT 1
	`

	var at time.Time
	err := r.db.GetContext(ctx, &at, query, memberID, asOf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "last payment")
	}
	return &at, nil
}

// HasOpenBalance reports an expected-but-unpaid payment as of the date
func (r *PaymentRepository) HasOpenBalance(ctx context.Context, memberID int64, asOf time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM member_payments
			WHERE member_id = $1
			  AND due_date <= $2
			  AND (paid_at IS NULL OR paid_at > $2)
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, memberID, asOf); err != nil {
		return false, errors.Wrap(err, "open balance")
	}
	return exists, nil
}
