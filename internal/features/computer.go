package features

import (
	"context"
	"math"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Computer builds the fixed-shape feature vector for a (member, as-of date)
// pair. Every sub-aggregate reads only source records whose own timestamp is
// on or before the as-of date; that single bound is what keeps training
// labels leak-free, so each query here states its window explicitly.
type Computer struct {
	members   member.Repository
	visits    member.VisitRepository
	contracts member.ContractRepository
	payments  member.PaymentRepository
	spells    spell.Repository
	cfg       config.PipelineConfig
}

// NewComputer creates a new temporal feature computer
func NewComputer(
	members member.Repository,
	visits member.VisitRepository,
	contracts member.ContractRepository,
	payments member.PaymentRepository,
	spells spell.Repository,
	cfg config.PipelineConfig,
) *Computer {
	return &Computer{
		members:   members,
		visits:    visits,
		contracts: contracts,
		payments:  payments,
		spells:    spells,
		cfg:       cfg,
	}
}

// Compute returns the feature vector for the member as of the given date.
// A missing registration record returns a FeatureComputationError: the
// caller must exclude the member, never substitute defaults. Features
// documented as nullable come back nil instead of failing.
func (c *Computer) Compute(ctx context.Context, memberID int64, asOf time.Time) (*feature.Vector, error) {
	m, err := c.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, errors.Wrapf(err, "load member %d", memberID)
	}
	if m == nil {
		return nil, errors.NewFeatureComputationError(memberID, "no registration record")
	}

	v := &feature.Vector{MemberID: memberID, AsOf: asOf}

	if err := c.tenure(ctx, m, asOf, v); err != nil {
		return nil, err
	}
	if err := c.attendance(ctx, m, asOf, v); err != nil {
		return nil, err
	}
	if err := c.contractTiming(ctx, m, asOf, v); err != nil {
		return nil, err
	}
	if err := c.financial(ctx, m, asOf, v); err != nil {
		return nil, err
	}
	c.context(m, asOf, v)

	if err := c.segmentHistory(ctx, m, asOf, v); err != nil {
		return nil, err
	}

	return v, nil
}

// tenure fills the tenure group. Safe bound: spells started on or before
// asOf; churn outcomes confirmed strictly before asOf.
func (c *Computer) tenure(ctx context.Context, m *member.Member, asOf time.Time, v *feature.Vector) error {
	v.TenureDays = float64(daysBetween(m.RegisteredAt, asOf))

	spells, err := c.spells.ListByMember(ctx, m.ID, asOf)
	if err != nil {
		return errors.Wrapf(err, "list spells for member %d", m.ID)
	}

	var current *spell.Spell
	completed := 0
	for i := range spells {
		s := &spells[i]
		if s.ActiveOn(asOf) {
			current = s
			continue
		}
		if s.EndDate != nil && s.EndDate.Before(asOf) {
			completed++
		}
	}

	if current != nil {
		v.SpellDurationDays = float64(daysBetween(current.StartDate, asOf))
		v.ContractsInSpell = float64(current.ContractCount)
	}
	v.PriorSpells = float64(completed)

	churns, err := c.spells.CountChurnsBefore(ctx, m.ID, asOf)
	if err != nil {
		return errors.Wrapf(err, "count churns for member %d", m.ID)
	}
	v.PriorChurns = float64(churns)

	return nil
}

// attendance fills the frequency and engagement groups from one trailing
// 90-day visit window. Safe bound: visited_at <= asOf on every query.
func (c *Computer) attendance(ctx context.Context, m *member.Member, asOf time.Time, v *feature.Vector) error {
	windowStart := asOf.AddDate(0, 0, -90)
	visits, err := c.visits.ListWindow(ctx, m.ID, windowStart, asOf)
	if err != nil {
		return errors.Wrapf(err, "list visits for member %d", m.ID)
	}

	var n7, n14, n30, prev14, weekend, peak int
	for _, visit := range visits {
		age := daysBetween(visit.VisitedAt, asOf)
		if age < 7 {
			n7++
		}
		if age < 14 {
			n14++
		}
		if age < 30 {
			n30++
		}
		if age >= 14 && age < 28 {
			prev14++
		}
		switch visit.VisitedAt.Weekday() {
		case time.Saturday, time.Sunday:
			weekend++
		}
		h := visit.VisitedAt.Hour()
		if h >= c.cfg.PeakHourStart && h < c.cfg.PeakHourEnd {
			peak++
		}
	}

	v.Visits7d = float64(n7)
	v.Visits14d = float64(n14)
	v.Visits30d = float64(n30)
	v.Visits90d = float64(len(visits))
	v.AvgWeeklyVisits90d = float64(len(visits)) / (90.0 / 7.0)

	if prev14 > 0 {
		v.VisitTrend = feature.Ptr(float64(n14) / float64(prev14))
	}
	if len(visits) > 0 {
		v.WeekendRatio90d = feature.Ptr(float64(weekend) / float64(len(visits)))
		v.PeakHourRatio90d = feature.Ptr(float64(peak) / float64(len(visits)))
	}
	if len(visits) >= 2 {
		v.VisitGapStdDev90d = feature.Ptr(interVisitGapStdDev(visits))
	}

	last, err := c.visits.LastVisitAt(ctx, m.ID, asOf)
	if err != nil {
		return errors.Wrapf(err, "last visit for member %d", m.ID)
	}
	if last != nil {
		v.DaysSinceLastVisit = feature.Ptr(float64(daysBetween(*last, asOf)))
		v.HasEverVisited = 1
	}

	other, err := c.visits.VisitedOtherBranch(ctx, m.ID, m.HomeBranchID, asOf)
	if err != nil {
		return errors.Wrapf(err, "other-branch visits for member %d", m.ID)
	}
	if other {
		v.VisitedOtherBranch = 1
	}

	return nil
}

// contractTiming fills the recency group. Safe bound: the contract must be
// active on asOf; its end date may lie in the future. Knowing the agreed
// end of the current contract is not leakage, it is contract data.
func (c *Computer) contractTiming(ctx context.Context, m *member.Member, asOf time.Time, v *feature.Vector) error {
	contract, err := c.contracts.ActiveAt(ctx, m.ID, asOf)
	if err != nil {
		return errors.Wrapf(err, "active contract for member %d", m.ID)
	}
	if contract != nil {
		days := float64(daysBetween(asOf, contract.EndDate))
		v.DaysUntilContractEnd = feature.Ptr(days)
		if days <= float64(c.cfg.ChurnHorizonDays) {
			v.ContractExpiring30d = 1
		}
	}

	lastPaid, err := c.payments.LastPaidAt(ctx, m.ID, asOf)
	if err != nil {
		return errors.Wrapf(err, "last payment for member %d", m.ID)
	}
	if lastPaid != nil {
		v.DaysSinceLastPayment = feature.Ptr(float64(daysBetween(*lastPaid, asOf)))
	}

	return nil
}

// financial fills the financial group from one trailing 90-day payment
// window. Safe bound: due_date <= asOf, and a payment only counts as
// confirmed when it was paid on or before asOf.
func (c *Computer) financial(ctx context.Context, m *member.Member, asOf time.Time, v *feature.Vector) error {
	windowStart := asOf.AddDate(0, 0, -90)
	payments, err := c.payments.ListWindow(ctx, m.ID, windowStart, asOf)
	if err != nil {
		return errors.Wrapf(err, "list payments for member %d", m.ID)
	}

	var received float64
	confirmed := 0
	for _, p := range payments {
		if p.PaidAt != nil && !p.PaidAt.After(asOf) {
			amt, _ := p.Amount.Float64()
			received += amt
			confirmed++
		}
	}

	v.AvgMonthlyPayment90d = received / 3.0
	if len(payments) > 0 {
		v.PaymentRegularity90d = feature.Ptr(float64(confirmed) / float64(len(payments)))
	}

	open, err := c.payments.HasOpenBalance(ctx, m.ID, asOf)
	if err != nil {
		return errors.Wrapf(err, "open balance for member %d", m.ID)
	}
	if open {
		v.HasOpenBalance = 1
	}

	// Forced default: an open balance whose last confirmed payment is more
	// than a renewal cycle old. The turnstile blocks these members, so their
	// absence is never attributed to voluntary disengagement.
	if open && v.DaysSinceLastPayment != nil && *v.DaysSinceLastPayment > float64(c.cfg.RenewalCycleDays) {
		v.IsDefaulter = 1
	}

	return nil
}

// context fills the seasonality and demographic groups from the immutable
// member record.
func (c *Computer) context(m *member.Member, asOf time.Time, v *feature.Vector) {
	v.MonthOfYear = float64(asOf.Month())
	if m.RegisteredAt.Month() == time.January || m.RegisteredAt.Month() == time.February {
		v.ResolutionSignup = 1
	}

	v.Age = m.AgeAt(asOf)
	switch m.Gender {
	case "M":
		v.Gender = 0
	case "F":
		v.Gender = 1
	default:
		v.Gender = 0.5
	}
}

// segmentHistory fills the segment group. Safe bound: migrations confirmed
// strictly before asOf.
func (c *Computer) segmentHistory(ctx context.Context, m *member.Member, asOf time.Time, v *feature.Vector) error {
	migrated, err := c.spells.HadMigrationBefore(ctx, m.ID, asOf)
	if err != nil {
		return errors.Wrapf(err, "migration history for member %d", m.ID)
	}
	if migrated {
		v.HadSegmentMigration = 1
	}
	return nil
}

// interVisitGapStdDev computes the standard deviation of day gaps between
// consecutive visits. Visits must be ordered oldest first.
func interVisitGapStdDev(visits []member.Visit) float64 {
	gaps := make([]float64, 0, len(visits)-1)
	for i := 1; i < len(visits); i++ {
		gaps = append(gaps, float64(daysBetween(visits[i-1].VisitedAt, visits[i].VisitedAt)))
	}

	var mean float64
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))

	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))

	return math.Sqrt(variance)
}

// daysBetween returns whole days from a to b, truncating partial days.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
