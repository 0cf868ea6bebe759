package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 2 * time.Second

// KafkaPublisher writes trip events and GPS fixes to two topics, keyed by
// trip id so a trip's events stay ordered within a partition.
type KafkaPublisher struct {
	trips *kafka.Writer
	fixes *kafka.Writer
}

// NewKafkaPublisher creates writers for the trip and fix topics.
func NewKafkaPublisher(brokers []string, tripTopic, fixesTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		trips: newWriter(brokers, tripTopic),
		fixes: newWriter(brokers, fixesTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	})
}

// PublishTrip writes a trip event.
func (k *KafkaPublisher) PublishTrip(ctx context.Context, evt TripEvent) error {
	return k.write(ctx, k.trips, evt.TripID, evt)
}

// PublishFix writes a GPS fix event.
func (k *KafkaPublisher) PublishFix(ctx context.Context, evt FixEvent) error {
	return k.write(ctx, k.fixes, evt.TripID, evt)
}

func (k *KafkaPublisher) write(ctx context.Context, w *kafka.Writer, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b}); err != nil {
		return fmt.Errorf("failed to write to %s: %w", w.Topic, err)
	}
	return nil
}

// Close flushes and closes both writers.
func (k *KafkaPublisher) Close() error {
	return errors.Join(k.trips.Close(), k.fixes.Close())
}

var _ Publisher = (*KafkaPublisher)(nil)
