package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// DeadLetterWriter publishes messages that cannot be settled to the
// dead-letter topic, preserving the original payload and annotating the
// failure reason and stream origin in headers.
type DeadLetterWriter struct {
	writer *kafka.Writer
}

// NewDeadLetterWriter creates a dead-letter publisher.
func NewDeadLetterWriter(brokers []string, topic string) *DeadLetterWriter {
	return &DeadLetterWriter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish forwards the original message to the dead-letter topic.
func (w *DeadLetterWriter) Publish(ctx context.Context, original kafka.Message, reason string) error {
	msg := kafka.Message{
		Key:   original.Key,
		Value: original.Value,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(reason)},
			{Key: "origin-topic", Value: []byte(original.Topic)},
			{Key: "origin-partition", Value: []byte(fmt.Sprintf("%d", original.Partition))},
			{Key: "origin-offset", Value: []byte(fmt.Sprintf("%d", original.Offset))},
		},
	}
	return w.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer.
func (w *DeadLetterWriter) Close() error {
	return w.writer.Close()
}
