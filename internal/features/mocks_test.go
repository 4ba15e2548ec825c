package features

import (
	"context"
	"sort"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
)

// In-memory repository fakes backed by plain slices. Each fake honors the
// same temporal bounds the SQL implementations apply, so leak-free window
// behavior is testable without a database.

type fakeMembers struct {
	byID map[int64]*member.Member
}

func newFakeMembers(members ...*member.Member) *fakeMembers {
	f := &fakeMembers{byID: make(map[int64]*member.Member)}
	for _, m := range members {
		f.byID[m.ID] = m
	}
	return f
}

func (f *fakeMembers) GetByID(_ context.Context, id int64) (*member.Member, error) {
	return f.byID[id], nil
}

func (f *fakeMembers) ListActiveIDs(_ context.Context, _ time.Time) ([]int64, error) {
	ids := make([]int64, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeVisits struct {
	visits []member.Visit
}

func (f *fakeVisits) ListWindow(_ context.Context, memberID int64, from, to time.Time) ([]member.Visit, error) {
	var out []member.Visit
	for _, v := range f.visits {
		if v.MemberID != memberID {
			continue
		}
		if v.VisitedAt.Before(from) || v.VisitedAt.After(to) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitedAt.Before(out[j].VisitedAt) })
	return out, nil
}

func (f *fakeVisits) LastVisitAt(_ context.Context, memberID int64, asOf time.Time) (*time.Time, error) {
	var last *time.Time
	for _, v := range f.visits {
		if v.MemberID != memberID || v.VisitedAt.After(asOf) {
			continue
		}
		if last == nil || v.VisitedAt.After(*last) {
			t := v.VisitedAt
			last = &t
		}
	}
	return last, nil
}

func (f *fakeVisits) VisitedOtherBranch(_ context.Context, memberID, homeBranchID int64, asOf time.Time) (bool, error) {
	for _, v := range f.visits {
		if v.MemberID == memberID && v.BranchID != homeBranchID && !v.VisitedAt.After(asOf) {
			return true, nil
		}
	}
	return false, nil
}

type fakeContracts struct {
	contracts []member.Contract
}

func (f *fakeContracts) ActiveAt(_ context.Context, memberID int64, onDate time.Time) (*member.Contract, error) {
	for i := range f.contracts {
		c := &f.contracts[i]
		if c.MemberID == memberID && !onDate.Before(c.StartDate) && !onDate.After(c.EndDate) {
			return c, nil
		}
	}
	return nil, nil
}

type fakePayments struct {
	payments []member.Payment
}

func (f *fakePayments) ListWindow(_ context.Context, memberID int64, from, to time.Time) ([]member.Payment, error) {
	var out []member.Payment
	for _, p := range f.payments {
		if p.MemberID != memberID || p.DueDate.Before(from) || p.DueDate.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePayments) LastPaidAt(_ context.Context, memberID int64, asOf time.Time) (*time.Time, error) {
	var last *time.Time
	for _, p := range f.payments {
		if p.MemberID != memberID || p.PaidAt == nil || p.PaidAt.After(asOf) {
			continue
		}
		if last == nil || p.PaidAt.After(*last) {
			t := *p.PaidAt
			last = &t
		}
	}
	return last, nil
}

func (f *fakePayments) HasOpenBalance(_ context.Context, memberID int64, asOf time.Time) (bool, error) {
	for _, p := range f.payments {
		if p.MemberID != memberID || p.DueDate.After(asOf) {
			continue
		}
		if p.PaidAt == nil || p.PaidAt.After(asOf) {
			return true, nil
		}
	}
	return false, nil
}

type outcomeRecord struct {
	spellID     int64
	outcome     spell.OutcomeType
	confirmedAt time.Time
}

type fakeSpells struct {
	spells   []spell.Spell
	outcomes []outcomeRecord
}

func (f *fakeSpells) outcomeOf(spellID int64) *outcomeRecord {
	for i := range f.outcomes {
		if f.outcomes[i].spellID == spellID {
			return &f.outcomes[i]
		}
	}
	return nil
}

func (f *fakeSpells) ListByMember(_ context.Context, memberID int64, asOf time.Time) ([]spell.Spell, error) {
	var out []spell.Spell
	for _, s := range f.spells {
		if s.MemberID == memberID && !s.StartDate.After(asOf) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSpells) CurrentSpell(_ context.Context, memberID int64, asOf time.Time) (*spell.Spell, error) {
	for i := range f.spells {
		s := &f.spells[i]
		if s.MemberID == memberID && s.ActiveOn(asOf) {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSpells) CountChurnsBefore(_ context.Context, memberID int64, asOf time.Time) (int, error) {
	count := 0
	for _, s := range f.spells {
		if s.MemberID != memberID {
			continue
		}
		o := f.outcomeOf(s.ID)
		if o != nil && o.outcome == spell.OutcomeChurn && o.confirmedAt.Before(asOf) {
			count++
		}
	}
	return count, nil
}

func (f *fakeSpells) HadMigrationBefore(_ context.Context, memberID int64, asOf time.Time) (bool, error) {
	for _, s := range f.spells {
		if s.MemberID != memberID {
			continue
		}
		o := f.outcomeOf(s.ID)
		if o != nil && o.outcome == spell.OutcomeMigration && o.confirmedAt.Before(asOf) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSpells) ListClassified(_ context.Context, from, to time.Time) ([]spell.ClassifiedSpell, error) {
	var out []spell.ClassifiedSpell
	for _, s := range f.spells {
		o := f.outcomeOf(s.ID)
		if o == nil {
			continue
		}
		inScope := (s.EndDate == nil && !s.StartDate.After(to)) ||
			(s.EndDate != nil && !s.EndDate.Before(from) && !s.EndDate.After(to))
		if !inScope {
			continue
		}
		out = append(out, spell.ClassifiedSpell{Spell: s, Outcome: o.outcome})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemberID != out[j].MemberID {
			return out[i].MemberID < out[j].MemberID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (f *fakeSpells) ChurnConfirmedBetween(_ context.Context, memberID int64, after, until time.Time) (bool, error) {
	for _, s := range f.spells {
		if s.MemberID != memberID {
			continue
		}
		o := f.outcomeOf(s.ID)
		if o != nil && o.outcome == spell.OutcomeChurn && o.confirmedAt.After(after) && !o.confirmedAt.After(until) {
			return true, nil
		}
	}
	return false, nil
}

// captureSamples records the last ReplaceAll payload so generator tests can
// inspect exactly what would have been persisted.
type captureSamples struct {
	stored []*sample.TrainingSample
	calls  int
}

func (c *captureSamples) ReplaceAll(_ context.Context, samples []*sample.TrainingSample) error {
	c.stored = samples
	c.calls++
	return nil
}

func (c *captureSamples) ListWindow(_ context.Context, from, to time.Time) ([]*sample.TrainingSample, error) {
	var out []*sample.TrainingSample
	for _, s := range c.stored {
		if s.ReferenceDate.Before(from) || !s.ReferenceDate.Before(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *captureSamples) CountPositives(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, s := range c.stored {
		if s.Churned && !s.ReferenceDate.Before(from) && s.ReferenceDate.Before(to) {
			n++
		}
	}
	return n, nil
}

func (c *captureSamples) Bounds(_ context.Context) (time.Time, time.Time, error) {
	var earliest, latest time.Time
	for _, s := range c.stored {
		if earliest.IsZero() || s.ReferenceDate.Before(earliest) {
			earliest = s.ReferenceDate
		}
		if latest.IsZero() || s.ReferenceDate.After(latest) {
			latest = s.ReferenceDate
		}
	}
	return earliest, latest, nil
}

var (
	_ member.Repository         = (*fakeMembers)(nil)
	_ member.VisitRepository    = (*fakeVisits)(nil)
	_ member.ContractRepository = (*fakeContracts)(nil)
	_ member.PaymentRepository  = (*fakePayments)(nil)
	_ spell.Repository          = (*fakeSpells)(nil)
	_ sample.Repository         = (*captureSamples)(nil)
)
