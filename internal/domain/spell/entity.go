package spell

import "time"

// Spell is a maximal continuous interval, per member and segment, of
// uninterrupted active contracts (gaps bridged only up to 30 days).
// Produced by an external aggregation job; consumed strictly read-only.
// Spells for the same (member, segment) never overlap.
type Spell struct {
	ID            int64      `db:"id"`
	MemberID      int64      `db:"member_id"`
	Segment       string     `db:"segment"`
	StartDate     time.Time  `db:"start_date"`
	EndDate       *time.Time `db:"end_date"` // nil while the spell is ongoing
	ContractCount int        `db:"contract_count"`
}

// ActiveOn reports whether the spell covers the given date.
func (s *Spell) ActiveOn(date time.Time) bool {
	if date.Before(s.StartDate) {
		return false
	}
	return s.EndDate == nil || !date.After(*s.EndDate)
}

// OutcomeType classifies what happened at the end of a spell.
type OutcomeType string

const (
	// OutcomeChurn is a confirmed 30+ day gap with no contract in any segment
	OutcomeChurn OutcomeType = "CHURN"
	// OutcomeMigration is a same-member segment change within 30 days
	OutcomeMigration OutcomeType = "MIGRATION"
	// OutcomeActive means the spell is still ongoing
	OutcomeActive OutcomeType = "ACTIVE"
	// OutcomeIndeterminate means not enough forward data to decide yet
	OutcomeIndeterminate OutcomeType = "INDETERMINATE"
)

// Valid checks if the outcome type is one of the known values
func (t OutcomeType) Valid() bool {
	switch t {
	case OutcomeChurn, OutcomeMigration, OutcomeActive, OutcomeIndeterminate:
		return true
	}
	return false
}

// String returns string representation
func (t OutcomeType) String() string {
	return string(t)
}

// Outcome is the classification of a spell's end. Exactly one per spell.
type Outcome struct {
	SpellID     int64       `db:"spell_id"`
	MemberID    int64       `db:"member_id"`
	Type        OutcomeType `db:"outcome_type"`
	ConfirmedAt time.Time   `db:"confirmed_at"`
}

// ClassifiedSpell joins a spell with its outcome for sample generation.
type ClassifiedSpell struct {
	Spell
	Outcome OutcomeType `db:"outcome_type"`
}
