package member

import (
	"context"
	"time"
)

// Repository provides read-only access to member identity records.
// Source facts are append-only; the pipeline never writes them.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Member, error)
	// ListActiveIDs returns members holding an active contract on the date.
	ListActiveIDs(ctx context.Context, onDate time.Time) ([]int64, error)
}

// VisitRepository provides read-only access to attendance events.
type VisitRepository interface {
	// ListWindow returns visits with from <= visited_at <= to, oldest first.
	ListWindow(ctx context.Context, memberID int64, from, to time.Time) ([]Visit, error)
	// LastVisitAt returns the most recent visit on or before asOf,
	// or nil when the member has never visited.
	LastVisitAt(ctx context.Context, memberID int64, asOf time.Time) (*time.Time, error)
	// VisitedOtherBranch reports any visit at a branch other than home,
	// ever, on or before asOf.
	VisitedOtherBranch(ctx context.Context, memberID, homeBranchID int64, asOf time.Time) (bool, error)
}

// ContractRepository provides read-only access to contract records.
type ContractRepository interface {
	// ActiveAt returns the contract covering the date, or nil when none.
	ActiveAt(ctx context.Context, memberID int64, onDate time.Time) (*Contract, error)
}

// PaymentRepository provides read-only access to payment records.
type PaymentRepository interface {
	// ListWindow returns payments with from <= due_date <= to.
	ListWindow(ctx context.Context, memberID int64, from, to time.Time) ([]Payment, error)
	// LastPaidAt returns the most recent confirmed payment on or before asOf,
	// or nil when the member has never paid.
	LastPaidAt(ctx context.Context, memberID int64, asOf time.Time) (*time.Time, error)
	// HasOpenBalance reports any payment due on or before asOf that remains
	// unconfirmed as of asOf.
	HasOpenBalance(ctx context.Context, memberID int64, asOf time.Time) (bool, error)
}
