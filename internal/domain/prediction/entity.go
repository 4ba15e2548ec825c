package prediction

import (
	"time"

	"github.com/google/uuid"
)

// RiskTier is the discretized calibrated probability bucket.
type RiskTier string

const (
	TierHigh   RiskTier = "HIGH"
	TierMedium RiskTier = "MEDIUM"
	TierLow    RiskTier = "LOW"
)

// String returns string representation
func (t RiskTier) String() string {
	return string(t)
}

// AtRisk reports whether the tier warrants intervention.
func (t RiskTier) AtRisk() bool {
	return t == TierHigh || t == TierMedium
}

// ChurnType is the rule-derived reason category for a prediction.
type ChurnType string

const (
	// TypeNone: paying and attending, no immediate signal
	TypeNone ChurnType = "NONE"
	// TypeBehavioral: paying but absent, the member chooses not to attend
	TypeBehavioral ChurnType = "BEHAVIORAL"
	// TypeFinancial: open balance but not yet in forced default
	TypeFinancial ChurnType = "FINANCIAL"
	// TypeDefault: blocked at the turnstile for non-payment; the absence is
	// forced, never attributed to voluntary disengagement
	TypeDefault ChurnType = "DEFAULT"
	// TypeFull: both behavioral and financial signals severe
	TypeFull ChurnType = "FULL"
)

// String returns string representation
func (t ChurnType) String() string {
	return string(t)
}

// Reason is one explanatory factor, largest-magnitude first.
type Reason struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
	Message string  `json:"message"`
}

// Prediction is one scored row per (member, score date). Functionally pure
// given the same feature snapshot and model version: rescoring a date with
// unchanged inputs reproduces every column except the scored_at audit
// timestamp.
type Prediction struct {
	ID           uuid.UUID `db:"id"`
	MemberID     int64     `db:"member_id"`
	BranchID     int64     `db:"branch_id"`
	ScoreDate    time.Time `db:"score_date"`
	ScoredAt     time.Time `db:"scored_at"`
	Probability  float64   `db:"churn_probability"`
	Tier         RiskTier  `db:"risk_tier"`
	ChurnType    ChurnType `db:"churn_type"`
	Reasons      []Reason  `db:"-"`
	PlaybookID   string    `db:"playbook_id"`
	ModelVersion string    `db:"model_version"`

	// Operator context columns
	DaysUntilContractEnd *int64   `db:"days_until_contract_end"`
	DaysSinceLastVisit   *int64   `db:"days_since_last_visit"`
	AvgWeeklyVisits      *float64 `db:"avg_weekly_visits"`
}

// OutcomeCategory files a verified prediction into the outcome taxonomy.
type OutcomeCategory string

const (
	OutcomeTruePositive  OutcomeCategory = "TRUE_POSITIVE"
	OutcomeTrueNegative  OutcomeCategory = "TRUE_NEGATIVE"
	OutcomeRecovered     OutcomeCategory = "RECOVERED"
	OutcomeFalsePositive OutcomeCategory = "FALSE_POSITIVE"
	OutcomeFalseNegative OutcomeCategory = "FALSE_NEGATIVE"
)

// String returns string representation
func (c OutcomeCategory) String() string {
	return string(c)
}

// TierMovement compares the verified tier with the member's most recent
// subsequent tier.
type TierMovement string

const (
	MovementStable   TierMovement = "STABLE"
	MovementImproved TierMovement = "IMPROVED"
	MovementWorsened TierMovement = "WORSENED"
	MovementChurned  TierMovement = "CHURNED"
)

// String returns string representation
func (m TierMovement) String() string {
	return string(m)
}

// HistoryRecord is an append-only prediction history row. Verification
// columns transition from pending to verified exactly once and are never
// mutated afterwards.
type HistoryRecord struct {
	ID           uuid.UUID `db:"id"`
	MemberID     int64     `db:"member_id"`
	BranchID     int64     `db:"branch_id"`
	ScoreDate    time.Time `db:"score_date"`
	ScoredAt     time.Time `db:"scored_at"`
	Probability  float64   `db:"churn_probability"`
	Tier         RiskTier  `db:"risk_tier"`
	ChurnType    ChurnType `db:"churn_type"`
	ModelVersion string    `db:"model_version"`

	// Verification columns, filled exactly once by the outcome verifier
	ActualChurned   *bool            `db:"actual_churned"`
	OutcomeCategory *OutcomeCategory `db:"outcome_category"`
	TierMovement    *TierMovement    `db:"tier_movement"`
	VerifiedAt      *time.Time       `db:"verified_at"`
}

// Verified reports whether the record has already been through verification.
func (r *HistoryRecord) Verified() bool {
	return r.VerifiedAt != nil
}

// Verification is the outcome-verifier result for one history record.
type Verification struct {
	RecordID        uuid.UUID
	ActualChurned   bool
	OutcomeCategory OutcomeCategory
	TierMovement    TierMovement
	VerifiedAt      time.Time
}
