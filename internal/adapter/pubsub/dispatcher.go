package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/chatrelay/relay-service/internal/domain/model"
)

// EventDispatcher defines the high-level contract for outgoing bus traffic.
// The delivery service stays agnostic of the transport implementation.
type EventDispatcher interface {
	Publish(ctx context.Context, topic string, ev event.Eventer) error
}

// eventDispatcher is the concrete implementation (private).
type eventDispatcher struct {
	publisher message.Publisher
}

// NewEventDispatcher returns the interface instead of the concrete struct.
func NewEventDispatcher(pub message.Publisher) EventDispatcher {
	return &eventDispatcher{publisher: pub}
}

// busEnvelope is the bus-side wire shape. Message payloads are flattened to
// the same WireMessage dialect clients receive over WebSocket.
type busEnvelope struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

func (d *eventDispatcher) Publish(ctx context.Context, topic string, ev event.Eventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	env := busEnvelope{
		ID:     ev.GetID(),
		Event:  ev.GetName(),
		SentAt: ev.GetOccurredAt(),
	}
	switch p := ev.GetPayload().(type) {
	case *model.Message:
		env.Payload = model.FormatMessage(*p)
	case []*model.Message:
		env.Payload = model.FormatBatch(p)
	default:
		env.Payload = p
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("event dispatcher: publish to topic %s: %w", topic, err)
	}
	return nil
}
