package wsmarshaller

import (
	"encoding/json"

	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/chatrelay/relay-service/internal/domain/model"
)

// WSEvent is a generic wrapper for WebSocket messages to provide a
// consistent structure for every event name.
type WSEvent struct {
	Event   string `json:"event"`
	ID      string `json:"id"`
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

// MarshallDeliveryEvent prepares an event for WebSocket transmission.
// The encoded form is cached on the event so a broadcast to N connections
// serializes the payload once.
func MarshallDeliveryEvent(ev event.Eventer) ([]byte, error) {
	if cached, ok := ev.GetCached().([]byte); ok {
		return cached, nil
	}

	res := &WSEvent{
		Event:  ev.GetName(),
		ID:     ev.GetID(),
		SentAt: ev.GetOccurredAt(),
	}

	switch p := ev.GetPayload().(type) {
	case *model.Message:
		res.Payload = model.FormatMessage(*p)
	case []*model.Message:
		res.Payload = model.FormatBatch(p)
	default:
		res.Payload = p
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	ev.SetCached(data)
	return data, nil
}
