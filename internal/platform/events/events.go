// Package events publishes donation lifecycle events for the activity feed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Activity kinds.
const (
	KindDonationCreated    = "donation.created"
	KindRecurringCreated   = "recurring.created"
	KindRecurringPaused    = "recurring.paused"
	KindRecurringResumed   = "recurring.resumed"
	KindRecurringCancelled = "recurring.cancelled"
)

// Activity is one entry of the public activity feed. Donor is a display
// label, never an internal identifier.
type Activity struct {
	Kind       string    `json:"kind"`
	ProjectID  string    `json:"project_id"`
	Donor      string    `json:"donor,omitempty"`
	Amount     int64     `json:"amount"`
	Interval   string    `json:"interval,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits activity events. Publishing is best-effort from the
// caller's point of view; implementations must not block domain writes.
type Publisher interface {
	Publish(ctx context.Context, ev Activity) error
	Close()
}

// KafkaPublisher writes activity events to a Kafka topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the event asynchronously, keyed by project so feed
// consumers see per-project ordering. Delivery failures are logged, not
// returned, so a broker outage cannot fail a donation.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Activity) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.ProjectID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("activity publish failed",
				slog.String("kind", ev.Kind),
				slog.String("project_id", ev.ProjectID),
				slog.Any("error", err))
		}
	})
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() {
	_ = p.client.Flush(context.Background())
	p.client.Close()
}

// NopPublisher discards events. Used when no brokers are configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Activity) error { return nil }
func (NopPublisher) Close()                                  {}
