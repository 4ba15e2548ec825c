package kafka

// Topic definitions for Kafka event streaming
const (
	// Pipeline events
	TopicScoringRuns     = "pipeline.scoring_runs"
	TopicFeatureRebuilds = "pipeline.feature_rebuilds"

	// Model lifecycle events
	TopicModelTrained  = "models.trained"
	TopicModelPromoted = "models.promoted"

	// Monitoring events
	TopicDriftAlerts    = "monitoring.drift_alerts"
	TopicCircuitBreaker = "monitoring.circuit_breaker"
	TopicRetrainSignals = "monitoring.retrain_signals"

	// Verification events
	TopicOutcomesVerified = "outcomes.verified"
)
