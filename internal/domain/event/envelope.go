package event

import (
	"sync/atomic"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/google/uuid"
)

// Wire-level event names. Clients switch on these.
const (
	NameConnected    = "connected"
	NameMessage      = "new_message"
	NameMessageBatch = "new_message_batch"
	NameQueueStats   = "queue_stats"
	NameError        = "error"
)

// Interface guard
var _ Eventer = (*Envelope)(nil)

// Envelope is the single concrete event carried through the Hub and the bus.
// The cached field holds the serialized form; atomic.Value keeps concurrent
// marshallers race-free (a lost first write only costs one extra encode).
type Envelope struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	Name       string `json:"event"`
	OccurredAt int64  `json:"sent_at"`
	Payload    any    `json:"payload"`

	cached atomic.Value
}

func (e *Envelope) GetID() string        { return e.ID }
func (e *Envelope) GetKind() Kind        { return e.Kind }
func (e *Envelope) GetName() string      { return e.Name }
func (e *Envelope) GetOccurredAt() int64 { return e.OccurredAt }
func (e *Envelope) GetPayload() any      { return e.Payload }

func (e *Envelope) GetCached() any {
	return e.cached.Load()
}

func (e *Envelope) SetCached(v any) {
	e.cached.Store(v)
}

func newEnvelope(kind Kind, name string, payload any) *Envelope {
	return &Envelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		Name:       name,
		OccurredAt: time.Now().UnixMilli(),
		Payload:    payload,
	}
}

// NewConnectedEvent is the handshake pushed to a freshly attached client.
func NewConnectedEvent(connID uuid.UUID) *Envelope {
	return newEnvelope(Connected, NameConnected, &model.ConnectedPayload{
		Ok:            true,
		ConnectionID:  connID.String(),
		ServerVersion: model.ServerVersion,
	})
}

// NewMessageEvent wraps a single message, used for history replay and
// retry re-delivery.
func NewMessageEvent(msg *model.Message) *Envelope {
	ev := newEnvelope(MessageCreated, NameMessage, msg)
	ev.OccurredAt = msg.CreatedAt
	return ev
}

// NewBatchEvent wraps a released batch in enqueue order.
func NewBatchEvent(batch []*model.Message) *Envelope {
	return newEnvelope(BatchCreated, NameMessageBatch, batch)
}

// NewStatsEvent carries a pipeline observability snapshot.
func NewStatsEvent(stats model.PipelineStats) *Envelope {
	return newEnvelope(StatsUpdated, NameQueueStats, stats)
}

// NewErrorEvent reports a failure to the originating client only.
func NewErrorEvent(kind, message string) *Envelope {
	return newEnvelope(Errored, NameError, &model.ErrorPayload{
		Type:    kind,
		Message: message,
	})
}
