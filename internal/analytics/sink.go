package analytics

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/kafka"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// KafkaSink publishes each event as one JSON message keyed by request ID, so
// the events of a request land on the same partition.
type KafkaSink struct {
	producer batchPublisher
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Publish(ctx context.Context, events []SearchEvent) error {
	batch := make([]kafka.Event, len(events))
	for i, e := range events {
		key := e.RequestID
		if key == "" {
			key = string(e.Type)
		}
		batch[i] = kafka.Event{Key: key, Value: e}
	}
	return s.producer.PublishBatch(ctx, batch)
}

// DiscardSink drops every batch. It backs the "none" analytics setting.
type DiscardSink struct{}

func (DiscardSink) Publish(context.Context, []SearchEvent) error { return nil }
