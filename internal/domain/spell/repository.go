package spell

import (
	"context"
	"time"
)

// Repository provides read-only access to the precomputed spell/outcome
// classification. The pipeline never mutates these views.
type Repository interface {
	// ListByMember returns spells that started on or before asOf,
	// oldest first.
	ListByMember(ctx context.Context, memberID int64, asOf time.Time) ([]Spell, error)
	// CurrentSpell returns the spell covering asOf, or nil when none.
	CurrentSpell(ctx context.Context, memberID int64, asOf time.Time) (*Spell, error)
	// CountChurnsBefore counts churn outcomes confirmed strictly before asOf.
	CountChurnsBefore(ctx context.Context, memberID int64, asOf time.Time) (int, error)
	// HadMigrationBefore reports a migration outcome confirmed strictly
	// before asOf.
	HadMigrationBefore(ctx context.Context, memberID int64, asOf time.Time) (bool, error)
	// ListClassified returns spells ending (or still open) within
	// [from, to] together with their outcome classification.
	ListClassified(ctx context.Context, from, to time.Time) ([]ClassifiedSpell, error)
	// ChurnConfirmedBetween reports whether a churn outcome for the member
	// was confirmed strictly after `after` and no later than `until`.
	ChurnConfirmedBetween(ctx context.Context, memberID int64, after, until time.Time) (bool, error)
}
