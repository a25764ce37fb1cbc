package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer MessageWriter
}

// batchTimeout flushes single-message batches right away instead of
// waiting out the writer's one second default.
const batchTimeout = 10 * time.Millisecond

// NewPublisher writes to brokers with a single delivery attempt per message.
// The topic is chosen per Publish call.
func NewPublisher(brokers []string) *Publisher {
	return NewPublisherWithWriter(newWriter(brokers))
}

func newWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  1,
		BatchTimeout: batchTimeout,
		WriteTimeout: 5 * time.Second,
	}
}

func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Publish JSON-encodes event onto topic. Messages are keyed by key when the
// event exposes one through a Key() method.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Value: data,
	}
	if k, ok := event.(interface{ Key() string }); ok {
		msg.Key = []byte(k.Key())
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
