package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/noah-isme/toko-admin/internal/resilience"
)

// MessageWriter is the part of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter builds a writer for topic. Messages with the same key land
// on the same partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// KafkaSink publishes envelopes to one Kafka topic.
type KafkaSink struct {
	Writer MessageWriter
	Retry  resilience.Retry
}

// Name implements Sink.
func (s *KafkaSink) Name() string { return "kafka" }

// Deliver implements Sink.
func (s *KafkaSink) Deliver(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	headers := []kafka.Header{
		{Key: "topic", Value: []byte(env.Topic)},
		{Key: "event-id", Value: []byte(env.ID.String())},
	}
	msg := kafka.Message{
		Key:     []byte(env.Key()),
		Value:   value,
		Time:    env.OccurredAt,
		Headers: headers,
	}
	return s.Retry.Do(ctx, func(ctx context.Context) error {
		return s.Writer.WriteMessages(ctx, msg)
	})
}
