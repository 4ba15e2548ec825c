package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/model"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/features"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/ml"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

func init() {
	_ = logger.Init("error", "test")
}

// world holds the in-memory source data one scoring run reads. The stubs
// apply the same temporal bounds as the SQL repositories.
type world struct {
	members   map[int64]*member.Member
	active    []int64
	visits    map[int64][]member.Visit
	contracts map[int64][]member.Contract
	payments  map[int64][]member.Payment
	spells    map[int64][]spell.Spell
}

type worldMembers struct{ w *world }

func (s *worldMembers) GetByID(_ context.Context, id int64) (*member.Member, error) {
	return s.w.members[id], nil
}

func (s *worldMembers) ListActiveIDs(context.Context, time.Time) ([]int64, error) {
	return s.w.active, nil
}

type worldVisits struct{ w *world }

func (s *worldVisits) ListWindow(_ context.Context, memberID int64, from, to time.Time) ([]member.Visit, error) {
	var out []member.Visit
	for _, v := range s.w.visits[memberID] {
		if !v.VisitedAt.Before(from) && !v.VisitedAt.After(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *worldVisits) LastVisitAt(_ context.Context, memberID int64, asOf time.Time) (*time.Time, error) {
	var last *time.Time
	for _, v := range s.w.visits[memberID] {
		if v.VisitedAt.After(asOf) {
			continue
		}
		if last == nil || v.VisitedAt.After(*last) {
			at := v.VisitedAt
			last = &at
		}
	}
	return last, nil
}

func (s *worldVisits) VisitedOtherBranch(_ context.Context, memberID, homeBranchID int64, asOf time.Time) (bool, error) {
	for _, v := range s.w.visits[memberID] {
		if !v.VisitedAt.After(asOf) && v.BranchID != homeBranchID {
			return true, nil
		}
	}
	return false, nil
}

type worldContracts struct{ w *world }

func (s *worldContracts) ActiveAt(_ context.Context, memberID int64, onDate time.Time) (*member.Contract, error) {
	for i := range s.w.contracts[memberID] {
		c := &s.w.contracts[memberID][i]
		if !onDate.Before(c.StartDate) && !onDate.After(c.EndDate) {
			return c, nil
		}
	}
	return nil, nil
}

type worldPayments struct{ w *world }

func (s *worldPayments) ListWindow(_ context.Context, memberID int64, from, to time.Time) ([]member.Payment, error) {
	var out []member.Payment
	for _, p := range s.w.payments[memberID] {
		if !p.DueDate.Before(from) && !p.DueDate.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *worldPayments) LastPaidAt(_ context.Context, memberID int64, asOf time.Time) (*time.Time, error) {
	var last *time.Time
	for _, p := range s.w.payments[memberID] {
		if p.PaidAt == nil || p.PaidAt.After(asOf) {
			continue
		}
		if last == nil || p.PaidAt.After(*last) {
			last = p.PaidAt
		}
	}
	return last, nil
}

func (s *worldPayments) HasOpenBalance(_ context.Context, memberID int64, asOf time.Time) (bool, error) {
	for _, p := range s.w.payments[memberID] {
		if p.DueDate.After(asOf) {
			continue
		}
		if p.PaidAt == nil || p.PaidAt.After(asOf) {
			return true, nil
		}
	}
	return false, nil
}

type worldSpells struct{ w *world }

func (s *worldSpells) ListByMember(_ context.Context, memberID int64, asOf time.Time) ([]spell.Spell, error) {
	var out []spell.Spell
	for _, sp := range s.w.spells[memberID] {
		if !sp.StartDate.After(asOf) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *worldSpells) CurrentSpell(_ context.Context, memberID int64, asOf time.Time) (*spell.Spell, error) {
	for i := range s.w.spells[memberID] {
		sp := &s.w.spells[memberID][i]
		if sp.ActiveOn(asOf) {
			return sp, nil
		}
	}
	return nil, nil
}

func (s *worldSpells) CountChurnsBefore(context.Context, int64, time.Time) (int, error) {
	return 0, nil
}

func (s *worldSpells) HadMigrationBefore(context.Context, int64, time.Time) (bool, error) {
	return false, nil
}

func (s *worldSpells) ListClassified(context.Context, time.Time, time.Time) ([]spell.ClassifiedSpell, error) {
	return nil, nil
}

func (s *worldSpells) ChurnConfirmedBetween(context.Context, int64, time.Time, time.Time) (bool, error) {
	return false, nil
}

type capturePredictions struct {
	byDate       map[string][]*prediction.Prediction
	replaceCalls int
}

func (c *capturePredictions) ReplaceForDate(_ context.Context, scoreDate time.Time, preds []*prediction.Prediction) error {
	if c.byDate == nil {
		c.byDate = make(map[string][]*prediction.Prediction)
	}
	c.byDate[scoreDate.Format("2006-01-02")] = preds
	c.replaceCalls++
	return nil
}

func (c *capturePredictions) ListByDate(_ context.Context, scoreDate time.Time) ([]*prediction.Prediction, error) {
	return c.byDate[scoreDate.Format("2006-01-02")], nil
}

type captureHistory struct {
	appended []*prediction.HistoryRecord
}

func (c *captureHistory) Append(_ context.Context, _ time.Time, records []*prediction.HistoryRecord) error {
	c.appended = records
	return nil
}

func (c *captureHistory) ListUnverified(context.Context, time.Time) ([]*prediction.HistoryRecord, error) {
	return nil, nil
}

func (c *captureHistory) ApplyVerification(context.Context, *prediction.Verification) (bool, error) {
	return false, nil
}

func (c *captureHistory) LatestTierAfter(context.Context, int64, time.Time) (prediction.RiskTier, bool, error) {
	return "", false, nil
}

func (c *captureHistory) ListVerifiedSince(context.Context, time.Time) ([]*prediction.HistoryRecord, error) {
	return nil, nil
}

func (c *captureHistory) ListWindow(context.Context, time.Time, time.Time) ([]*prediction.HistoryRecord, error) {
	return nil, nil
}

type captureSnapshots struct {
	rows []*feature.Snapshot
}

func (c *captureSnapshots) WriteBatch(_ context.Context, snaps []*feature.Snapshot) error {
	c.rows = append(c.rows, snaps...)
	return nil
}

func (c *captureSnapshots) ColumnWindow(context.Context, string, time.Time, time.Time) ([]float64, error) {
	return nil, nil
}

type staticRefs struct{ active string }

func (r *staticRefs) Active(context.Context) (string, error)       { return r.active, nil }
func (r *staticRefs) SetActive(context.Context, string) error      { return nil }
func (r *staticRefs) Shadow(context.Context) (string, bool, error) { return "", false, nil }
func (r *staticRefs) SetShadow(context.Context, string) error      { return nil }
func (r *staticRefs) PromoteShadow(context.Context) error          { return nil }

var (
	_ member.Repository            = (*worldMembers)(nil)
	_ member.VisitRepository       = (*worldVisits)(nil)
	_ member.ContractRepository    = (*worldContracts)(nil)
	_ member.PaymentRepository     = (*worldPayments)(nil)
	_ spell.Repository             = (*worldSpells)(nil)
	_ prediction.Repository        = (*capturePredictions)(nil)
	_ prediction.HistoryRepository = (*captureHistory)(nil)
	_ feature.SnapshotRepository   = (*captureSnapshots)(nil)
	_ model.ReferenceStore         = (*staticRefs)(nil)
)

func scoringPipelineConfig() config.PipelineConfig {
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
		ScoringBudget:         time.Minute,
		ScoringRateLimit:      200,
	}
}

func scoringMonitoringConfig() config.MonitoringConfig {
	return config.MonitoringConfig{
		PSIAlertThreshold:      0.20,
		ConceptDriftRatio:      0.30,
		HitRateMinThreshold:    0.50,
		NullRateBreaker:        0.05,
		VisitNullRateBreaker:   0.45,
		VerificationWindowDays: 30,
		OutcomeLookaheadDays:   60,
	}
}

// trainedModelDir fits a tiny ensemble on synthetic vectors and saves it
// under the given version.
func trainedModelDir(t *testing.T, version string) string {
	t.Helper()

	riskBase := &feature.Vector{
		TenureDays: 200, SpellDurationDays: 200, ContractsInSpell: 1,
		Visits90d: 3, DaysSinceLastVisit: feature.Ptr(40.0),
		VisitTrend: feature.Ptr(0.1), AvgWeeklyVisits90d: 0.2, HasEverVisited: 1,
		DaysUntilContractEnd: feature.Ptr(10.0), ContractExpiring30d: 1,
		DaysSinceLastPayment: feature.Ptr(50.0), AvgMonthlyPayment90d: 50,
		PaymentRegularity90d: feature.Ptr(0.3), HasOpenBalance: 1, IsDefaulter: 1,
		MonthOfYear: 3, Age: feature.Ptr(28.0),
	}
	safeBase := &feature.Vector{
		TenureDays: 700, SpellDurationDays: 700, ContractsInSpell: 3,
		Visits7d: 3, Visits14d: 6, Visits30d: 12, Visits90d: 36,
		DaysSinceLastVisit: feature.Ptr(2.0), VisitTrend: feature.Ptr(1.1),
		AvgWeeklyVisits90d: 2.8, HasEverVisited: 1,
		DaysUntilContractEnd: feature.Ptr(180.0),
		DaysSinceLastPayment: feature.Ptr(5.0), AvgMonthlyPayment90d: 50,
		PaymentRegularity90d: feature.Ptr(1.0),
		MonthOfYear:          3, Age: feature.Ptr(34.0), Gender: 1,
	}

	ds := ml.NewDataset()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		date := base.AddDate(0, 0, i)
		if i%2 == 0 {
			ds.Append(riskBase, 1, int64(9000+i), date)
		} else {
			ds.Append(safeBase, 0, int64(9000+i), date)
		}
	}

	e := ml.NewEnsemble()
	e.Version = version
	e.FitSpecialists(ds)
	metaX := e.MetaInputs(ds)
	e.FitMeta(metaX, ds.Y)
	e.FitCalibrator(metaX, ds.Y)

	dir := t.TempDir()
	_, err := e.Save(dir)
	require.NoError(t, err)
	return dir
}

// scoringWorld seeds two scoreable members plus one orphaned active ID
// (contract without a registration record).
func scoringWorld(scoreDate time.Time) *world {
	engaged := &member.Member{
		ID: 1, RegisteredAt: scoreDate.AddDate(-2, 0, 0),
		BirthDate: timePtr(time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC)),
		Gender:    "F", HomeBranchID: 1,
	}
	lapsing := &member.Member{
		ID: 2, RegisteredAt: scoreDate.AddDate(0, -9, 0),
		BirthDate: timePtr(time.Date(1998, 2, 20, 0, 0, 0, 0, time.UTC)),
		Gender:    "M", HomeBranchID: 1,
	}

	visitAt := func(daysAgo int, hour int) member.Visit {
		return member.Visit{
			MemberID: 1, BranchID: 1,
			VisitedAt: scoreDate.AddDate(0, 0, -daysAgo).Add(time.Duration(hour) * time.Hour),
		}
	}

	w := &world{
		members: map[int64]*member.Member{1: engaged, 2: lapsing},
		active:  []int64{1, 2, 3},
		visits: map[int64][]member.Visit{
			1: {visitAt(2, 18), visitAt(5, 18), visitAt(9, 10), visitAt(16, 18), visitAt(20, 19)},
			2: {
				{MemberID: 2, BranchID: 1, VisitedAt: scoreDate.AddDate(0, 0, -15).Add(18 * time.Hour)},
				{MemberID: 2, BranchID: 1, VisitedAt: scoreDate.AddDate(0, 0, -21).Add(18 * time.Hour)},
			},
		},
		contracts: map[int64][]member.Contract{
			1: {{ID: 10, MemberID: 1, Segment: "standard",
				StartDate: scoreDate.AddDate(0, -6, 0), EndDate: scoreDate.AddDate(0, 6, 0)}},
			2: {{ID: 20, MemberID: 2, Segment: "standard",
				StartDate: scoreDate.AddDate(0, -3, 0), EndDate: scoreDate.AddDate(0, 0, 14)}},
		},
		payments: map[int64][]member.Payment{
			1: {
				{ID: 100, MemberID: 1, DueDate: scoreDate.AddDate(0, 0, -28), PaidAt: timePtr(scoreDate.AddDate(0, 0, -28))},
				{ID: 101, MemberID: 1, DueDate: scoreDate.AddDate(0, 0, -58), PaidAt: timePtr(scoreDate.AddDate(0, 0, -57))},
			},
			2: {
				{ID: 200, MemberID: 2, DueDate: scoreDate.AddDate(0, 0, -28)},
				{ID: 201, MemberID: 2, DueDate: scoreDate.AddDate(0, 0, -58), PaidAt: timePtr(scoreDate.AddDate(0, 0, -55))},
			},
		},
		spells: map[int64][]spell.Spell{
			1: {{ID: 1, MemberID: 1, Segment: "standard", StartDate: scoreDate.AddDate(-2, 0, 0), ContractCount: 3}},
			2: {{ID: 2, MemberID: 2, Segment: "standard", StartDate: scoreDate.AddDate(0, -9, 0), ContractCount: 1}},
		},
	}
	return w
}

func timePtr(t time.Time) *time.Time { return &t }

func newTestScorer(w *world, modelDir string) (*Scorer, *capturePredictions, *captureHistory, *captureSnapshots) {
	cfg := scoringPipelineConfig()
	computer := features.NewComputer(
		&worldMembers{w}, &worldVisits{w}, &worldContracts{w}, &worldPayments{w}, &worldSpells{w}, cfg)

	preds := &capturePredictions{}
	history := &captureHistory{}
	snaps := &captureSnapshots{}

	scorer := NewScorer(
		&worldMembers{w}, computer, preds, history, snaps,
		&staticRefs{active: "vtest_scoring"}, events.NewPublisher(nil),
		modelDir, cfg, scoringMonitoringConfig())
	return scorer, preds, history, snaps
}

func TestScorer_RunScoresActiveMembers(t *testing.T) {
	scoreDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	modelDir := trainedModelDir(t, "vtest_scoring")
	scorer, preds, history, snaps := newTestScorer(scoringWorld(scoreDate), modelDir)

	stats, err := scorer.Run(context.Background(), scoreDate)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Scored)
	assert.Equal(t, 1, stats.Failures, "active ID without a registration record is excluded")
	assert.Equal(t, stats.Scored, stats.High+stats.Medium+stats.Low)
	assert.Equal(t, "vtest_scoring", stats.ModelVersion)

	written := preds.byDate[scoreDate.Format("2006-01-02")]
	require.Len(t, written, 2)
	for _, p := range written {
		assert.Equal(t, predictionID(p.MemberID, scoreDate, "vtest_scoring"), p.ID)
		assert.GreaterOrEqual(t, p.Probability, 0.0)
		assert.LessOrEqual(t, p.Probability, 1.0)
		assert.Equal(t, TierFor(p.Probability, scoringPipelineConfig()), p.Tier)
		assert.NotEmpty(t, p.PlaybookID)
		assert.NotEmpty(t, p.Reasons)
	}

	require.Len(t, history.appended, 2)
	assert.Equal(t, written[0].ID, history.appended[0].ID)

	require.Len(t, snaps.rows, 2)
	assert.Equal(t, "vtest_scoring", snaps.rows[0].ModelVersion)
	assert.True(t, scoreDate.Equal(snaps.rows[0].ScoreDate))
}

func TestScorer_RerunReproducesRows(t *testing.T) {
	scoreDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	modelDir := trainedModelDir(t, "vtest_scoring")
	scorer, preds, _, _ := newTestScorer(scoringWorld(scoreDate), modelDir)

	_, err := scorer.Run(context.Background(), scoreDate)
	require.NoError(t, err)
	first := preds.byDate[scoreDate.Format("2006-01-02")]

	_, err = scorer.Run(context.Background(), scoreDate)
	require.NoError(t, err)
	second := preds.byDate[scoreDate.Format("2006-01-02")]

	assert.Equal(t, 2, preds.replaceCalls, "rescoring replaces the date rather than appending")
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Probability, second[i].Probability)
		assert.Equal(t, first[i].Tier, second[i].Tier)
		assert.Equal(t, first[i].ChurnType, second[i].ChurnType)
		assert.Equal(t, first[i].Reasons, second[i].Reasons)
		assert.Equal(t, first[i].PlaybookID, second[i].PlaybookID)
	}
}

func TestScorer_BreakerHaltsBeforePersisting(t *testing.T) {
	scoreDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	modelDir := trainedModelDir(t, "vtest_scoring")

	w := scoringWorld(scoreDate)
	// A broken demographics sync: every member loses their birth date,
	// so the age null rate blows through the 5% gate.
	for _, m := range w.members {
		m.BirthDate = nil
	}

	scorer, preds, history, snaps := newTestScorer(w, modelDir)

	_, err := scorer.Run(context.Background(), scoreDate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCircuitBreakerTripped))

	assert.Zero(t, preds.replaceCalls, "a tripped breaker must not overwrite yesterday's predictions")
	assert.Empty(t, history.appended)
	assert.Empty(t, snaps.rows)
}

func TestScorer_MissingModelFailsRun(t *testing.T) {
	scoreDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	scorer, _, _, _ := newTestScorer(scoringWorld(scoreDate), t.TempDir())

	_, err := scorer.Run(context.Background(), scoreDate)
	require.Error(t, err)
}
