package prediction

import (
	"context"
	"time"
)

// Repository persists the current-state prediction table: one row per active
// member per score date, overwritten daily.
type Repository interface {
	// ReplaceForDate deletes the date's rows and inserts the fresh batch in
	// a single transaction, making score(date) safely re-runnable.
	ReplaceForDate(ctx context.Context, scoreDate time.Time, preds []*Prediction) error
	// ListByDate returns the predictions for a score date, ordered by member.
	ListByDate(ctx context.Context, scoreDate time.Time) ([]*Prediction, error)
}

// HistoryRepository persists the append-only prediction history with
// verification columns.
type HistoryRepository interface {
	// Append adds history rows for a score date. Re-running score(date)
	// replaces that date's rows rather than duplicating them.
	Append(ctx context.Context, scoreDate time.Time, records []*HistoryRecord) error
	// ListUnverified returns records with score_date <= asOfLimit that have
	// not been verified yet.
	ListUnverified(ctx context.Context, asOfLimit time.Time) ([]*HistoryRecord, error)
	// ApplyVerification fills the verification columns of a pending record.
	// It is a no-op on an already-verified record and reports whether the
	// write fired.
	ApplyVerification(ctx context.Context, v *Verification) (bool, error)
	// LatestTierAfter returns the member's most recent tier from records
	// strictly after the given score date, if any.
	LatestTierAfter(ctx context.Context, memberID int64, after time.Time) (RiskTier, bool, error)
	// ListVerifiedSince returns verified records with score_date >= since.
	ListVerifiedSince(ctx context.Context, since time.Time) ([]*HistoryRecord, error)
	// ListWindow returns all records with since <= score_date < until,
	// verified or not.
	ListWindow(ctx context.Context, since, until time.Time) ([]*HistoryRecord, error)
}
