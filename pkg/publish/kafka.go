package publish

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes results as JSON messages keyed by result id.
type Kafka struct {
	w messageWriter
}

// NewKafka creates a writer for topic on the given brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// Publish implements Publisher.
func (k *Kafka) Publish(ctx context.Context, r Result) error {
	payload, err := encode(r)
	if err != nil {
		return err
	}

	msg := kafka.Message{Key: []byte(r.ID.String()), Value: payload, Time: r.Timestamp}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

// Close implements Publisher.
func (k *Kafka) Close() error {
	return k.w.Close()
}
