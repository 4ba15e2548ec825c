package kafka

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Producer publishes pipeline events, one lazily created writer per
// topic. Writes are synchronous: the events are low-volume run summaries
// and alerts, and a lost drift alert is worse than a slow one.
type Producer struct {
	brokers []string
	log     *logger.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// ProducerConfig holds the broker list.
type ProducerConfig struct {
	Brokers []string
}

func NewProducer(cfg ProducerConfig) *Producer {
	return &Producer{
		brokers: cfg.Brokers,
		writers: make(map[string]*kafka.Writer),
		log:     logger.Get().With("component", "kafka_producer"),
	}
}

// Publish marshals event as JSON and sends it keyed by key, so consumers
// partition on the entity the event describes.
func (p *Producer) Publish(ctx context.Context, topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{Key: []byte(key), Value: data}
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		p.log.Errorf("Publish to %s failed: %v", topic, err)
		return err
	}

	p.log.Debugf("Published to %s, key=%s", topic, key)
	return nil
}

func (p *Producer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	p.writers[topic] = w
	return w
}

// Close shuts every topic writer, reporting the first failure.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.log.Errorf("Close writer for %s failed: %v", topic, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
