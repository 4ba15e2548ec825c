package features

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

func init() {
	_ = logger.Init("error", "test")
}

func pipelineTestConfig() config.PipelineConfig {
	return config.PipelineConfig{
		ChurnHorizonDays:      30,
		MidHorizonDays:        15,
		ColdStartDays:         30,
		RenewalCycleDays:      30,
		BehavioralAbsenceDays: 10,
		HighRiskThreshold:     0.70,
		MediumRiskThreshold:   0.40,
		PeakHourStart:         17,
		PeakHourEnd:           21,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type computerFixture struct {
	members   *fakeMembers
	visits    *fakeVisits
	contracts *fakeContracts
	payments  *fakePayments
	spells    *fakeSpells
}

func (f *computerFixture) build() *Computer {
	return NewComputer(f.members, f.visits, f.contracts, f.payments, f.spells, pipelineTestConfig())
}

func newComputerFixture(members ...*member.Member) *computerFixture {
	return &computerFixture{
		members:   newFakeMembers(members...),
		visits:    &fakeVisits{},
		contracts: &fakeContracts{},
		payments:  &fakePayments{},
		spells:    &fakeSpells{},
	}
}

func TestComputer_MissingMemberIsComputationError(t *testing.T) {
	fx := newComputerFixture()
	c := fx.build()

	_, err := c.Compute(context.Background(), 42, day(2026, 3, 1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFeatureComputation))

	var fce *errors.FeatureComputationError
	require.True(t, errors.As(err, &fce))
	assert.Equal(t, int64(42), fce.MemberID)
}

func TestComputer_AttendanceWindowsExcludeFutureVisits(t *testing.T) {
	asOf := day(2026, 6, 1)
	m := &member.Member{ID: 1, RegisteredAt: day(2024, 6, 1), Gender: "M", HomeBranchID: 1}

	fx := newComputerFixture(m)
	for _, age := range []int{3, 10, 20, 40} {
		fx.visits.visits = append(fx.visits.visits, member.Visit{
			MemberID: 1, BranchID: 1, VisitedAt: asOf.AddDate(0, 0, -age),
		})
	}
	// A visit after the reference date must never be visible.
	fx.visits.visits = append(fx.visits.visits, member.Visit{
		MemberID: 1, BranchID: 1, VisitedAt: asOf.AddDate(0, 0, 1),
	})

	v, err := fx.build().Compute(context.Background(), 1, asOf)
	require.NoError(t, err)

	assert.Equal(t, float64(1), v.Visits7d)
	assert.Equal(t, float64(2), v.Visits14d)
	assert.Equal(t, float64(3), v.Visits30d)
	assert.Equal(t, float64(4), v.Visits90d)
	assert.InDelta(t, 4.0/(90.0/7.0), v.AvgWeeklyVisits90d, 1e-9)

	// Prior 14-day window [14, 28) holds one visit (age 20), so the trend
	// compares 2 recent visits against it.
	require.NotNil(t, v.VisitTrend)
	assert.InDelta(t, 2.0, *v.VisitTrend, 1e-9)

	require.NotNil(t, v.DaysSinceLastVisit)
	assert.Equal(t, float64(3), *v.DaysSinceLastVisit)
	assert.Equal(t, float64(1), v.HasEverVisited)
}

func TestComputer_NullableFeaturesStayNil(t *testing.T) {
	asOf := day(2026, 6, 1)
	m := &member.Member{ID: 2, RegisteredAt: day(2025, 6, 1), Gender: "", HomeBranchID: 1}

	v, err := newComputerFixture(m).build().Compute(context.Background(), 2, asOf)
	require.NoError(t, err)

	assert.Nil(t, v.DaysSinceLastVisit)
	assert.Nil(t, v.VisitTrend)
	assert.Nil(t, v.WeekendRatio90d)
	assert.Nil(t, v.PeakHourRatio90d)
	assert.Nil(t, v.VisitGapStdDev90d)
	assert.Nil(t, v.DaysUntilContractEnd)
	assert.Nil(t, v.DaysSinceLastPayment)
	assert.Nil(t, v.PaymentRegularity90d)
	assert.Nil(t, v.Age)

	assert.Equal(t, float64(0), v.HasEverVisited)
	assert.Equal(t, float64(0), v.AvgMonthlyPayment90d)
	assert.Equal(t, 0.5, v.Gender)
	assert.Equal(t, float64(365), v.TenureDays)
}

func TestComputer_DefaulterRequiresStalePayment(t *testing.T) {
	asOf := day(2026, 6, 1)
	m := &member.Member{ID: 3, RegisteredAt: day(2024, 1, 1), Gender: "F", HomeBranchID: 1}

	paidAt := asOf.AddDate(0, 0, -45)
	fx := newComputerFixture(m)
	fx.payments.payments = []member.Payment{
		{MemberID: 3, Amount: decimal.NewFromFloat(49.90), DueDate: asOf.AddDate(0, 0, -45), PaidAt: &paidAt},
		{MemberID: 3, Amount: decimal.NewFromFloat(49.90), DueDate: asOf.AddDate(0, 0, -15), PaidAt: nil},
	}

	v, err := fx.build().Compute(context.Background(), 3, asOf)
	require.NoError(t, err)

	assert.Equal(t, float64(1), v.HasOpenBalance)
	require.NotNil(t, v.DaysSinceLastPayment)
	assert.Equal(t, float64(45), *v.DaysSinceLastPayment)
	assert.Equal(t, float64(1), v.IsDefaulter)

	// Same open balance with a recent confirmed payment is late, not forced
	// default.
	recentPaid := asOf.AddDate(0, 0, -10)
	fx.payments.payments[0].PaidAt = &recentPaid
	v, err = fx.build().Compute(context.Background(), 3, asOf)
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.HasOpenBalance)
	assert.Equal(t, float64(0), v.IsDefaulter)
}

func TestComputer_PaymentRegularityCountsConfirmedOnly(t *testing.T) {
	asOf := day(2026, 6, 1)
	m := &member.Member{ID: 4, RegisteredAt: day(2024, 1, 1), Gender: "F", HomeBranchID: 1}

	paid1 := asOf.AddDate(0, 0, -75)
	paid2 := asOf.AddDate(0, 0, -45)
	futurePaid := asOf.AddDate(0, 0, 5) // settled after asOf, not confirmed yet
	fx := newComputerFixture(m)
	fx.payments.payments = []member.Payment{
		{MemberID: 4, Amount: decimal.NewFromFloat(60), DueDate: asOf.AddDate(0, 0, -75), PaidAt: &paid1},
		{MemberID: 4, Amount: decimal.NewFromFloat(60), DueDate: asOf.AddDate(0, 0, -45), PaidAt: &paid2},
		{MemberID: 4, Amount: decimal.NewFromFloat(60), DueDate: asOf.AddDate(0, 0, -15), PaidAt: &futurePaid},
	}

	v, err := fx.build().Compute(context.Background(), 4, asOf)
	require.NoError(t, err)

	assert.InDelta(t, 120.0/3.0, v.AvgMonthlyPayment90d, 1e-9)
	require.NotNil(t, v.PaymentRegularity90d)
	assert.InDelta(t, 2.0/3.0, *v.PaymentRegularity90d, 1e-9)
}

func TestComputer_ContractExpiryFlag(t *testing.T) {
	asOf := day(2026, 6, 1)
	m := &member.Member{ID: 5, RegisteredAt: day(2024, 1, 1), Gender: "M", HomeBranchID: 1}

	fx := newComputerFixture(m)
	fx.contracts.contracts = []member.Contract{{
		ID: 1, MemberID: 5, Segment: "GYM",
		StartDate:    asOf.AddDate(0, -5, 0),
		EndDate:      asOf.AddDate(0, 0, 20),
		MonthlyPrice: decimal.NewFromFloat(49.90),
	}}

	v, err := fx.build().Compute(context.Background(), 5, asOf)
	require.NoError(t, err)
	require.NotNil(t, v.DaysUntilContractEnd)
	assert.Equal(t, float64(20), *v.DaysUntilContractEnd)
	assert.Equal(t, float64(1), v.ContractExpiring30d)

	fx.contracts.contracts[0].EndDate = asOf.AddDate(0, 0, 45)
	v, err = fx.build().Compute(context.Background(), 5, asOf)
	require.NoError(t, err)
	assert.Equal(t, float64(45), *v.DaysUntilContractEnd)
	assert.Equal(t, float64(0), v.ContractExpiring30d)
}

func TestComputer_ContextEncodings(t *testing.T) {
	asOf := day(2026, 7, 15)
	birth := day(1990, 8, 1) // birthday not yet reached in 2026

	tests := []struct {
		name       string
		registered time.Time
		gender     string
		wantGender float64
		wantResol  float64
	}{
		{"january signup male", day(2025, 1, 10), "M", 0, 1},
		{"february signup female", day(2025, 2, 20), "F", 1, 1},
		{"june signup unknown gender", day(2025, 6, 5), "", 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &member.Member{ID: 6, RegisteredAt: tt.registered, BirthDate: &birth, Gender: tt.gender, HomeBranchID: 1}
			v, err := newComputerFixture(m).build().Compute(context.Background(), 6, asOf)
			require.NoError(t, err)

			assert.Equal(t, tt.wantGender, v.Gender)
			assert.Equal(t, tt.wantResol, v.ResolutionSignup)
			assert.Equal(t, float64(7), v.MonthOfYear)
			require.NotNil(t, v.Age)
			assert.Equal(t, float64(35), *v.Age)
		})
	}
}

func TestComputer_TenureCountsCompletedSpellsAndChurns(t *testing.T) {
	asOf := day(2026, 6, 1)
	m := &member.Member{ID: 7, RegisteredAt: day(2022, 1, 1), Gender: "M", HomeBranchID: 1}

	firstEnd := day(2024, 3, 1)
	fx := newComputerFixture(m)
	fx.spells.spells = []spell.Spell{
		{ID: 10, MemberID: 7, Segment: "GYM", StartDate: day(2022, 1, 15), EndDate: &firstEnd, ContractCount: 4},
		{ID: 11, MemberID: 7, Segment: "GYM", StartDate: day(2025, 6, 1), ContractCount: 2},
	}
	fx.spells.outcomes = []outcomeRecord{
		{spellID: 10, outcome: spell.OutcomeChurn, confirmedAt: day(2024, 4, 1)},
	}

	v, err := fx.build().Compute(context.Background(), 7, asOf)
	require.NoError(t, err)

	assert.Equal(t, float64(1), v.PriorSpells)
	assert.Equal(t, float64(1), v.PriorChurns)
	assert.Equal(t, float64(365), v.SpellDurationDays)
	assert.Equal(t, float64(2), v.ContractsInSpell)
}

func TestComputer_SegmentAndBranchSignals(t *testing.T) {
	asOf := day(2026, 6, 1)
	m := &member.Member{ID: 8, RegisteredAt: day(2023, 1, 1), Gender: "F", HomeBranchID: 3}

	oldEnd := day(2024, 1, 1)
	fx := newComputerFixture(m)
	fx.visits.visits = []member.Visit{
		{MemberID: 8, BranchID: 3, VisitedAt: asOf.AddDate(0, 0, -2)},
		{MemberID: 8, BranchID: 7, VisitedAt: asOf.AddDate(0, 0, -5)},
	}
	fx.spells.spells = []spell.Spell{
		{ID: 20, MemberID: 8, Segment: "GYM", StartDate: day(2023, 2, 1), EndDate: &oldEnd},
	}
	fx.spells.outcomes = []outcomeRecord{
		{spellID: 20, outcome: spell.OutcomeMigration, confirmedAt: day(2024, 1, 20)},
	}

	v, err := fx.build().Compute(context.Background(), 8, asOf)
	require.NoError(t, err)

	assert.Equal(t, float64(1), v.VisitedOtherBranch)
	assert.Equal(t, float64(1), v.HadSegmentMigration)
}
