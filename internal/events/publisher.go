package events

import (
	"context"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/kafka"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Publisher publishes pipeline events to Kafka
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

// PublishScoringRunCompleted publishes a scoring run summary
func (p *Publisher) PublishScoringRunCompleted(ctx context.Context, event *ScoringRunCompletedEvent) error {
	return p.publish(ctx, kafka.TopicScoringRuns, event.ScoreDate, event)
}

// PublishFeatureRebuildCompleted publishes a rebuild summary
func (p *Publisher) PublishFeatureRebuildCompleted(ctx context.Context, event *FeatureRebuildCompletedEvent) error {
	return p.publish(ctx, kafka.TopicFeatureRebuilds, event.Cutoff, event)
}

// PublishModelTrained publishes a model trained event
func (p *Publisher) PublishModelTrained(ctx context.Context, event *ModelTrainedEvent) error {
	return p.publish(ctx, kafka.TopicModelTrained, event.ModelVersion, event)
}

// PublishModelPromoted publishes a model promoted event
func (p *Publisher) PublishModelPromoted(ctx context.Context, event *ModelPromotedEvent) error {
	return p.publish(ctx, kafka.TopicModelPromoted, event.ModelVersion, event)
}

// PublishDriftAlert publishes a drift alert
func (p *Publisher) PublishDriftAlert(ctx context.Context, event *DriftAlertEvent) error {
	return p.publish(ctx, kafka.TopicDriftAlerts, event.Subject, event)
}

// PublishCircuitBreakerTripped publishes a circuit breaker event
func (p *Publisher) PublishCircuitBreakerTripped(ctx context.Context, event *CircuitBreakerTrippedEvent) error {
	return p.publish(ctx, kafka.TopicCircuitBreaker, event.ScoreDate, event)
}

// PublishRetrainRecommended publishes a retrain recommendation
func (p *Publisher) PublishRetrainRecommended(ctx context.Context, event *RetrainRecommendedEvent) error {
	return p.publish(ctx, kafka.TopicRetrainSignals, event.ModelVersion, event)
}

// PublishOutcomesVerified publishes a verification run summary
func (p *Publisher) PublishOutcomesVerified(ctx context.Context, event *OutcomesVerifiedEvent) error {
	return p.publish(ctx, kafka.TopicOutcomesVerified, event.ID, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	if p.producer == nil {
		// Kafka is optional in local runs; events degrade to debug logs.
		p.log.Debugf("Kafka disabled, dropping event on %s", topic)
		return nil
	}
	return p.producer.Publish(ctx, topic, key, event)
}
