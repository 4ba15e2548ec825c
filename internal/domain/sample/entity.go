package sample

import (
	"time"

	"github.com/google/uuid"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
)

// Horizon tags how far before the labeled event a sample's reference date
// falls.
type Horizon string

const (
	HorizonAtSpellEnd   Horizon = "at_spell_end"
	Horizon15DaysBefore Horizon = "15_days_before"
	Horizon30DaysBefore Horizon = "30_days_before"
	HorizonMonthly      Horizon = "monthly_snapshot"
)

// String returns string representation
func (h Horizon) String() string {
	return string(h)
}

// LabelType tags sample provenance.
type LabelType string

const (
	LabelChurn  LabelType = "CHURN"
	LabelActive LabelType = "ACTIVE"
)

// String returns string representation
func (t LabelType) String() string {
	return string(t)
}

// TrainingSample is one labeled row keyed by (member, reference date).
// The vector is computed strictly from facts dated on or before the
// reference date; the label is forward-looking (churn within 30 days).
// Samples are immutable once generated and regenerated wholesale on each
// feature-store rebuild.
type TrainingSample struct {
	ID            uuid.UUID      `db:"id"`
	MemberID      int64          `db:"member_id"`
	ReferenceDate time.Time      `db:"reference_date"`
	Horizon       Horizon        `db:"horizon"`
	LabelType     LabelType      `db:"label_type"`
	Churned       bool           `db:"churned_in_30d"`
	Vector        feature.Vector `db:"-"`
	GeneratedAt   time.Time      `db:"generated_at"`
}
