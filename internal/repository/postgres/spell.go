package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Compile-time check
var _ spell.Repository = (*SpellRepository)(nil)

// SpellRepository implements spell.Repository over the precomputed spell and
// outcome views maintained by the upstream aggregation job.
type SpellRepository struct {
	db DBTX
}

// NewSpellRepository creates a new spell repository
func NewSpellRepository(db DBTX) *SpellRepository {
	return &SpellRepository{db: db}
}

// ListByMember returns spells started on or before asOf, oldest first
func (r *SpellRepository) ListByMember(ctx context.Context, memberID int64, asOf time.Time) ([]spell.Spell, error) {
	query := `
		SELECT id, member_id, segment, start_date, end_date, contract_count
		FROM membership_spells
		WHERE member_id = $1 AND start_date <= $2
		ORDER BY start_date
	`

	var spells []spell.Spell
	if err := r.db.SelectContext(ctx, &spells, query, memberID, asOf); err != nil {
		return nil, errors.Wrap(err, "list spells")
	}
	return spells, nil
}

// CurrentSpell returns the spell covering asOf, or nil when none
func (r *SpellRepository) CurrentSpell(ctx context.Context, memberID int64, asOf time.Time) (*spell.Spell, error) {
	query := `
		SELECT id, member_id, segment, start_date, end_date, contract_count
		FROM membership_spells
		WHERE member_id = $1
		  AND start_date <= $2
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date DESC
		LIMIT 1
	`

	s := &spell.Spell{}
	err := r.db.GetContext(ctx, s, query, memberID, asOf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "current spell")
	}
	return s, nil
}

// CountChurnsBefore counts churn outcomes confirmed strictly before asOf
func (r *SpellRepository) CountChurnsBefore(ctx context.Context, memberID int64, asOf time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM spell_outcomes
		WHERE member_id = $1 AND outcome_type = $2 AND confirmed_at < $3
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, memberID, spell.OutcomeChurn, asOf); err != nil {
		return 0, errors.Wrap(err, "count churns")
	}
	return count, nil
}

// HadMigrationBefore reports a migration outcome confirmed strictly before asOf
func (r *SpellRepository) HadMigrationBefore(ctx context.Context, memberID int64, asOf time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM spell_outcomes
			WHERE member_id = $1 AND outcome_type = $2 AND confirmed_at < $3
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, memberID, spell.OutcomeMigration, asOf); err != nil {
		return false, errors.Wrap(err, "had migration")
	}
	return exists, nil
}

// ListClassified returns spells ending (or still open) within [from, to]
// joined with their outcomes
func (r *SpellRepository) ListClassified(ctx context.Context, from, to time.Time) ([]spell.ClassifiedSpell, error) {
	query := `
		SELECT s.id, s.member_id, s.segment, s.start_date, s.end_date,
		       s.contract_count, o.outcome_type
		FROM membership_spells s
		JOIN spell_outcomes o ON o.spell_id = s.id
		WHERE (s.end_date IS NULL AND s.start_date <= $2)
		   OR (s.end_date >= $1 AND s.end_date <= $2)
		ORDER BY s.member_id, s.start_date
	`

	var spells []spell.ClassifiedSpell
	if err := r.db.SelectContext(ctx, &spells, query, from, to); err != nil {
		return nil, errors.Wrap(err, "list classified spells")
	}
	return spells, nil
}

// ChurnConfirmedBetween reports a churn outcome confirmed in (after, until]
func (r *SpellRepository) ChurnConfirmedBetween(ctx context.Context, memberID int64, after, until time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM spell_outcomes
			WHERE member_id = $1
			  AND outcome_type = $2
			  AND confirmed_at > $3
			  AND confirmed_at <= $4
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, memberID, spell.OutcomeChurn, after, until); err != nil {
		return false, errors.Wrap(err, "churn confirmed between")
	}
	return exists, nil
}
