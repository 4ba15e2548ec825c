package feature

import "time"

// Vector is the fixed-shape feature vector for one (member, as-of date) pair.
// Every aggregate is computed from source records timestamped on or before
// AsOf. Pointer fields are the features documented as nullable; everything
// else is always present.
type Vector struct {
	MemberID int64     `db:"member_id" json:"member_id"`
	AsOf     time.Time `db:"as_of" json:"as_of"`

	// Tenure (5)
	TenureDays        float64 `db:"tenure_days" json:"tenure_days"`
	SpellDurationDays float64 `db:"spell_duration_days" json:"spell_duration_days"`
	ContractsInSpell  float64 `db:"contracts_in_spell" json:"contracts_in_spell"`
	PriorSpells       float64 `db:"prior_spells" json:"prior_spells"`
	PriorChurns       float64 `db:"prior_churns" json:"prior_churns"`

	// Frequency (10, has_ever_visited included)
	Visits7d           float64  `db:"visits_7d" json:"visits_7d"`
	Visits14d          float64  `db:"visits_14d" json:"visits_14d"`
	Visits30d          float64  `db:"visits_30d" json:"visits_30d"`
	Visits90d          float64  `db:"visits_90d" json:"visits_90d"`
	DaysSinceLastVisit *float64 `db:"days_since_last_visit" json:"days_since_last_visit"` // nil: never visited
	VisitTrend         *float64 `db:"visit_trend" json:"visit_trend"`                     // nil: empty prior window
	AvgWeeklyVisits90d float64  `db:"avg_weekly_visits_90d" json:"avg_weekly_visits_90d"`
	VisitGapStdDev90d  *float64 `db:"visit_gap_stddev_90d" json:"visit_gap_stddev_90d"` // nil: fewer than 2 visits
	WeekendRatio90d    *float64 `db:"weekend_ratio_90d" json:"weekend_ratio_90d"`       // nil: zero visits in window
	HasEverVisited     float64  `db:"has_ever_visited" json:"has_ever_visited"`

	// Engagement (2)
	PeakHourRatio90d   *float64 `db:"peak_hour_ratio_90d" json:"peak_hour_ratio_90d"` // nil: zero visits in window
	VisitedOtherBranch float64  `db:"visited_other_branch" json:"visited_other_branch"`

	// Recency (3)
	DaysUntilContractEnd *float64 `db:"days_until_contract_end" json:"days_until_contract_end"` // nil: no active contract
	ContractExpiring30d  float64  `db:"contract_expiring_30d" json:"contract_expiring_30d"`
	DaysSinceLastPayment *float64 `db:"days_since_last_payment" json:"days_since_last_payment"` // nil: never paid

	// Financial (4, is_defaulter included)
	AvgMonthlyPayment90d float64  `db:"avg_monthly_payment_90d" json:"avg_monthly_payment_90d"`
	PaymentRegularity90d *float64 `db:"payment_regularity_90d" json:"payment_regularity_90d"` // nil: no expected payments
	HasOpenBalance       float64  `db:"has_open_balance" json:"has_open_balance"`
	IsDefaulter          float64  `db:"is_defaulter" json:"is_defaulter"`

	// Seasonality (2)
	MonthOfYear       float64 `db:"month_of_year" json:"month_of_year"`
	ResolutionSignup  float64 `db:"resolution_signup" json:"resolution_signup"`

	// Demographic (2)
	Age    *float64 `db:"age" json:"age"` // nil: birth date not recorded
	Gender float64  `db:"gender" json:"gender"` // M=0, F=1, unknown=0.5

	// Segment history (1)
	HadSegmentMigration float64 `db:"had_segment_migration" json:"had_segment_migration"`
}

// Value returns the named feature and whether it is non-null.
// Unknown names return (0, false).
func (v *Vector) Value(name string) (float64, bool) {
	switch name {
	case TenureDays:
		return v.TenureDays, true
	case SpellDurationDays:
		return v.SpellDurationDays, true
	case ContractsInSpell:
		return v.ContractsInSpell, true
	case PriorSpells:
		return v.PriorSpells, true
	case PriorChurns:
		return v.PriorChurns, true
	case Visits7d:
		return v.Visits7d, true
	case Visits14d:
		return v.Visits14d, true
	case Visits30d:
		return v.Visits30d, true
	case Visits90d:
		return v.Visits90d, true
	case DaysSinceLastVisit:
		return deref(v.DaysSinceLastVisit)
	case VisitTrend:
		return deref(v.VisitTrend)
	case AvgWeeklyVisits90d:
		return v.AvgWeeklyVisits90d, true
	case VisitGapStdDev90d:
		return deref(v.VisitGapStdDev90d)
	case WeekendRatio90d:
		return deref(v.WeekendRatio90d)
	case HasEverVisited:
		return v.HasEverVisited, true
	case PeakHourRatio90d:
		return deref(v.PeakHourRatio90d)
	case VisitedOtherBranch:
		return v.VisitedOtherBranch, true
	case DaysUntilContractEnd:
		return deref(v.DaysUntilContractEnd)
	case ContractExpiring30d:
		return v.ContractExpiring30d, true
	case DaysSinceLastPayment:
		return deref(v.DaysSinceLastPayment)
	case AvgMonthlyPayment90d:
		return v.AvgMonthlyPayment90d, true
	case PaymentRegularity90d:
		return deref(v.PaymentRegularity90d)
	case HasOpenBalance:
		return v.HasOpenBalance, true
	case IsDefaulter:
		return v.IsDefaulter, true
	case MonthOfYear:
		return v.MonthOfYear, true
	case ResolutionSignup:
		return v.ResolutionSignup, true
	case Age:
		return deref(v.Age)
	case Gender:
		return v.Gender, true
	case HadSegmentMigration:
		return v.HadSegmentMigration, true
	}
	return 0, false
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Ptr is a helper for building vectors with nullable fields.
func Ptr(v float64) *float64 { return &v }
