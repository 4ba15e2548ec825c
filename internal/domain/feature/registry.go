package feature

// Canonical feature names. The scoring artifact, drift monitor, and
// explanation templates are all keyed by these strings, so they never change
// once a model version has been trained against them.
const (
	TenureDays        = "tenure_days"
	SpellDurationDays = "spell_duration_days"
	ContractsInSpell  = "contracts_in_spell"
	PriorSpells       = "prior_spells"
	PriorChurns       = "prior_churns"

	Visits7d           = "visits_7d"
	Visits14d          = "visits_14d"
	Visits30d          = "visits_30d"
	Visits90d          = "visits_90d"
	DaysSinceLastVisit = "days_since_last_visit"
	VisitTrend         = "visit_trend"
	AvgWeeklyVisits90d = "avg_weekly_visits_90d"
	VisitGapStdDev90d  = "visit_gap_stddev_90d"
	WeekendRatio90d    = "weekend_ratio_90d"
	HasEverVisited     = "has_ever_visited"

	PeakHourRatio90d   = "peak_hour_ratio_90d"
	VisitedOtherBranch = "visited_other_branch"

	DaysUntilContractEnd = "days_until_contract_end"
	ContractExpiring30d  = "contract_expiring_30d"
	DaysSinceLastPayment = "days_since_last_payment"

	AvgMonthlyPayment90d = "avg_monthly_payment_90d"
	PaymentRegularity90d = "payment_regularity_90d"
	HasOpenBalance       = "has_open_balance"
	IsDefaulter          = "is_defaulter"

	MonthOfYear      = "month_of_year"
	ResolutionSignup = "resolution_signup"

	Age    = "age"
	Gender = "gender"

	HadSegmentMigration = "had_segment_migration"
)

// Feature groups by signal type. Each specialist model is restricted to one
// disjoint union of groups, which bounds its overfitting surface and keeps
// the meta-learner coefficients readable as "which signal dominates".
var (
	TenureFeatures = []string{
		TenureDays, SpellDurationDays, ContractsInSpell, PriorSpells, PriorChurns,
	}

	FrequencyFeatures = []string{
		Visits7d, Visits14d, Visits30d, Visits90d,
		DaysSinceLastVisit, VisitTrend, AvgWeeklyVisits90d,
		VisitGapStdDev90d, WeekendRatio90d, HasEverVisited,
	}

	EngagementFeatures = []string{
		PeakHourRatio90d, VisitedOtherBranch,
	}

	RecencyFeatures = []string{
		DaysUntilContractEnd, ContractExpiring30d, DaysSinceLastPayment,
	}

	FinancialFeatures = []string{
		AvgMonthlyPayment90d, PaymentRegularity90d, HasOpenBalance, IsDefaulter,
	}

	SeasonalityFeatures = []string{
		MonthOfYear, ResolutionSignup,
	}

	DemographicFeatures = []string{
		Age, Gender,
	}

	SegmentFeatures = []string{
		HadSegmentMigration,
	}
)

// Specialist feature assignments (disjoint by construction).
var (
	// AttendanceFeatures feeds the attendance-decay specialist
	AttendanceFeatures = concat(FrequencyFeatures, EngagementFeatures)

	// PaymentFeatures feeds the payment-health specialist
	PaymentFeatures = FinancialFeatures

	// LifecycleFeatures feeds the lifecycle/contract-timing specialist
	LifecycleFeatures = concat(TenureFeatures, RecencyFeatures)

	// ContextFeatures feeds the context/demographic/seasonal specialist
	ContextFeatures = concat(SeasonalityFeatures, DemographicFeatures, SegmentFeatures)
)

// PassthroughFeatures are the high-signal features fed directly to the
// meta-learner alongside the four specialist probabilities.
var PassthroughFeatures = []string{
	DaysSinceLastVisit, DaysUntilContractEnd, VisitTrend,
}

// AllFeatures is the full ordered list used for training and drift checks.
var AllFeatures = concat(
	TenureFeatures,
	FrequencyFeatures,
	EngagementFeatures,
	RecencyFeatures,
	FinancialFeatures,
	SeasonalityFeatures,
	DemographicFeatures,
	SegmentFeatures,
)

// visitFeatures carry a relaxed null-rate threshold in the data-quality
// circuit breaker: a large fraction of members never visits, so nulls here
// are expected rather than a data-quality failure.
var visitFeatures = map[string]bool{
	Visits7d: true, Visits14d: true, Visits30d: true, Visits90d: true,
	DaysSinceLastVisit: true, VisitTrend: true, AvgWeeklyVisits90d: true,
	VisitGapStdDev90d: true, WeekendRatio90d: true, PeakHourRatio90d: true,
}

// IsVisitFeature reports whether the feature derives from attendance events.
func IsVisitFeature(name string) bool {
	return visitFeatures[name]
}

// Templates maps a feature name to a human-readable explanation template for
// operators. {value} is replaced with the member's value for the feature.
var Templates = map[string]string{
	DaysSinceLastVisit:   "No visit for {value} days",
	VisitTrend:           "Visit frequency changed to {value}x the previous two weeks",
	Visits7d:             "Only {value} visits in the last 7 days",
	Visits14d:            "Only {value} visits in the last 14 days",
	Visits30d:            "Only {value} visits in the last 30 days",
	AvgWeeklyVisits90d:   "Averaging {value} visits per week over 90 days",
	VisitGapStdDev90d:    "Irregular attendance pattern (gap deviation {value})",
	WeekendRatio90d:      "{value} of visits fall on weekends",
	HasEverVisited:       "Never visited since registration",
	PeakHourRatio90d:     "{value} of visits in peak hours",
	VisitedOtherBranch:   "Has visited another branch",
	DaysUntilContractEnd: "Contract ends in {value} days",
	ContractExpiring30d:  "Contract expires within 30 days",
	DaysSinceLastPayment: "Last confirmed payment {value} days ago",
	AvgMonthlyPayment90d: "Paying {value} per month on average",
	PaymentRegularity90d: "Only {value} of expected payments received",
	HasOpenBalance:       "Has an outstanding unpaid balance",
	IsDefaulter:          "In forced default: unpaid balance and no payment for over 30 days",
	TenureDays:           "Member for {value} days",
	SpellDurationDays:    "Current activity spell is {value} days old",
	ContractsInSpell:     "{value} contracts in the current spell",
	PriorSpells:          "{value} previous completed spells",
	PriorChurns:          "{value} previous confirmed churns",
	MonthOfYear:          "Scored in calendar month {value}",
	ResolutionSignup:     "Signed up during resolution season",
	Age:                  "Age {value}",
	Gender:               "",
	HadSegmentMigration:  "Has migrated between segments before",
}

// FallbackTemplate is used when a feature has no registered template.
const FallbackTemplate = "Signal {name} at {value}"

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
