package kafkabus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	domoutbox "github.com/grovemarket/marketplace-checkout/internal/domain/outbox"
)

// Publisher relays checkout events to a Kafka topic. It implements the outbox
// Publisher port and is normally wired as a subscriber of the in-memory bus so
// downstream consumers (notifications, analytics) see the same events.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type envelope struct {
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (p *Publisher) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafkabus: encode %s: %w", e.EventName(), err)
	}
	value, err := json.Marshal(envelope{
		Event:      e.EventName(),
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafkabus: encode envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.EventName()),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafkabus: write %s: %w", e.EventName(), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
