package events

import (
	"fmt"
	"time"
)

// BaseEvent carries the envelope fields shared by every published event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a new base event with defaults
func NewBaseEvent(eventType string) BaseEvent {
	now := time.Now().UTC()
	return BaseEvent{
		ID:        fmt.Sprintf("%d", now.UnixNano()),
		Type:      eventType,
		Timestamp: now,
		Source:    "churn-pipeline",
		Version:   "1.0",
	}
}

// ScoringRunCompletedEvent summarizes one daily scoring run.
type ScoringRunCompletedEvent struct {
	BaseEvent
	ScoreDate    string  `json:"score_date"`
	ModelVersion string  `json:"model_version"`
	ScoredTotal  int     `json:"scored_total"`
	HighRisk     int     `json:"high_risk"`
	MediumRisk   int     `json:"medium_risk"`
	LowRisk      int     `json:"low_risk"`
	Failures     int     `json:"failures"`
	DurationSecs float64 `json:"duration_seconds"`
}

// FeatureRebuildCompletedEvent summarizes a training-set rebuild.
type FeatureRebuildCompletedEvent struct {
	BaseEvent
	Cutoff       string  `json:"cutoff"`
	Positives    int     `json:"positives"`
	Negatives    int     `json:"negatives"`
	Excluded     int     `json:"excluded"`
	DurationSecs float64 `json:"duration_seconds"`
}

// ModelTrainedEvent announces a finished training run. The new version is a
// shadow candidate, not yet in production.
type ModelTrainedEvent struct {
	BaseEvent
	ModelVersion string             `json:"model_version"`
	TrainStart   string             `json:"train_start"`
	TrainEnd     string             `json:"train_end"`
	Folds        int                `json:"folds"`
	Metrics      map[string]float64 `json:"metrics"`
}

// ModelPromotedEvent announces a shadow candidate taking over production.
type ModelPromotedEvent struct {
	BaseEvent
	ModelVersion string `json:"model_version"`
}

// DriftAlertEvent is published for each feature or metric that crosses a
// drift threshold.
type DriftAlertEvent struct {
	BaseEvent
	Kind      string  `json:"kind"` // feature_psi|score_psi|concept|hit_rate
	Subject   string  `json:"subject"`
	Severity  string  `json:"severity"` // WARNING|ALERT
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// CircuitBreakerTrippedEvent is published when data-quality checks halt a
// scoring run before any prediction is persisted.
type CircuitBreakerTrippedEvent struct {
	BaseEvent
	ScoreDate string         `json:"score_date"`
	Checks    []BreakerCheck `json:"checks"`
}

// BreakerCheck is one failed data-quality check.
type BreakerCheck struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// RetrainRecommendedEvent is published when the drift monitor concludes the
// production model should be retrained.
type RetrainRecommendedEvent struct {
	BaseEvent
	ModelVersion string   `json:"model_version"`
	Reasons      []string `json:"reasons"`
}

// OutcomesVerifiedEvent summarizes one verification run.
type OutcomesVerifiedEvent struct {
	BaseEvent
	Verified       int `json:"verified"`
	TruePositives  int `json:"true_positives"`
	TrueNegatives  int `json:"true_negatives"`
	Recovered      int `json:"recovered"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
}
