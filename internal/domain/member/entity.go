package member

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is a subscriber identity. Immutable once registered; attributes may
// be appended over time but never rewritten in place.
type Member struct {
	ID           int64      `db:"id"`
	RegisteredAt time.Time  `db:"registered_at"`
	BirthDate    *time.Time `db:"birth_date"`
	Gender       string     `db:"gender"` // M, F, or empty when unknown
	HomeBranchID int64      `db:"home_branch_id"`
}

// AgeAt returns the member's age in full years at the given date,
// or nil when the birth date is not recorded.
func (m *Member) AgeAt(at time.Time) *float64 {
	if m.BirthDate == nil {
		return nil
	}
	years := at.Year() - m.BirthDate.Year()
	anniversary := m.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	age := float64(years)
	return &age
}

// Visit is a single attendance event recorded at a branch turnstile.
type Visit struct {
	MemberID  int64     `db:"member_id"`
	BranchID  int64     `db:"branch_id"`
	VisitedAt time.Time `db:"visited_at"`
}

// Contract is one billing agreement within a spell.
type Contract struct {
	ID           int64           `db:"id"`
	MemberID     int64           `db:"member_id"`
	Segment      string          `db:"segment"`
	StartDate    time.Time       `db:"start_date"`
	EndDate      time.Time       `db:"end_date"`
	MonthlyPrice decimal.Decimal `db:"monthly_price"`
}

// Payment is a billing record. A payment is expected when its due date has
// passed; it is confirmed when PaidAt is set.
type Payment struct {
	ID       int64           `db:"id"`
	MemberID int64           `db:"member_id"`
	Amount   decimal.Decimal `db:"amount"`
	DueDate  time.Time       `db:"due_date"`
	PaidAt   *time.Time      `db:"paid_at"`
}

// Confirmed reports whether the payment was actually received.
func (p *Payment) Confirmed() bool {
	return p.PaidAt != nil
}
