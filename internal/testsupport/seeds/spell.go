package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport"
)

// SpellBuilder provides a fluent API for creating Spell entities together
// with their outcome row.
type SpellBuilder struct {
	db      DBTX
	ctx     context.Context
	entity  *spell.Spell
	outcome *spell.Outcome
}

// NewSpellBuilder creates a new SpellBuilder defaulting to an open spell
// classified as ACTIVE.
func NewSpellBuilder(db DBTX, ctx context.Context) *SpellBuilder {
	id := int64(testsupport.NextSequence())
	return &SpellBuilder{
		db:  db,
		ctx: ctx,
		entity: &spell.Spell{
			ID:            id,
			Segment:       "GYM",
			StartDate:     time.Now().UTC().AddDate(-1, 0, 0),
			ContractCount: 2,
		},
		outcome: &spell.Outcome{
			SpellID:     id,
			Type:        spell.OutcomeActive,
			ConfirmedAt: time.Now().UTC(),
		},
	}
}

// WithMemberID sets the spell owner
func (b *SpellBuilder) WithMemberID(id int64) *SpellBuilder {
	b.entity.MemberID = id
	b.outcome.MemberID = id
	return b
}

// WithSegment sets the product segment
func (b *SpellBuilder) WithSegment(segment string) *SpellBuilder {
	b.entity.Segment = segment
	return b
}

// WithStartDate sets the spell start
func (b *SpellBuilder) WithStartDate(t time.Time) *SpellBuilder {
	b.entity.StartDate = t
	return b
}

// WithContractCount sets the number of contracts in the spell
func (b *SpellBuilder) WithContractCount(n int) *SpellBuilder {
	b.entity.ContractCount = n
	return b
}

// Churned closes the spell on endDate with a CHURN outcome confirmed 30 days later
func (b *SpellBuilder) Churned(endDate time.Time) *SpellBuilder {
	b.entity.EndDate = &endDate
	b.outcome.Type = spell.OutcomeChurn
	b.outcome.ConfirmedAt = endDate.AddDate(0, 0, 30)
	return b
}

// Migrated closes the spell on endDate with a MIGRATION outcome
func (b *SpellBuilder) Migrated(endDate time.Time) *SpellBuilder {
	b.entity.EndDate = &endDate
	b.outcome.Type = spell.OutcomeMigration
	b.outcome.ConfirmedAt = endDate.AddDate(0, 0, 30)
	return b
}

// Indeterminate closes the spell without enough forward data to classify
func (b *SpellBuilder) Indeterminate(endDate time.Time) *SpellBuilder {
	b.entity.EndDate = &endDate
	b.outcome.Type = spell.OutcomeIndeterminate
	b.outcome.ConfirmedAt = endDate
	return b
}

// Insert persists the spell and its outcome, returning the spell
func (b *SpellBuilder) Insert() (*spell.Spell, error) {
	spellQuery := `
		INSERT INTO membership_spells (id, member_id, segment, start_date, end_date, contract_count)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := b.db.ExecContext(b.ctx, spellQuery,
		b.entity.ID, b.entity.MemberID, b.entity.Segment,
		b.entity.StartDate, b.entity.EndDate, b.entity.ContractCount)
	if err != nil {
		return nil, fmt.Errorf("seed spell: %w", err)
	}

	outcomeQuery := `
		INSERT INTO spell_outcomes (spell_id, member_id, outcome_type, confirmed_at)
		VALUES ($1, $2, $3, $4)`

	_, err = b.db.ExecContext(b.ctx, outcomeQuery,
		b.outcome.SpellID, b.outcome.MemberID, b.outcome.Type, b.outcome.ConfirmedAt)
	if err != nil {
		return nil, fmt.Errorf("seed spell outcome: %w", err)
	}
	return b.entity, nil
}
