package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/google/uuid"
)

// Hubber is the gateway for connection management and event fan-out.
type Hubber interface {
	// Broadcast pushes the event to every live connection and returns how
	// many mailboxes accepted it.
	Broadcast(ev event.Eventer) int
	Register(conn Connector)
	Unregister(connID uuid.UUID)
	Count() int
	Shutdown()
}

// hubConfig is populated through functional options.
type hubConfig struct {
	sendTimeout time.Duration
}

// Hub fans events out to all connected clients. Chat messages are broadcast
// to everyone, so there is one flat connection set rather than per-user
// routing cells.
type Hub struct {
	// conns stores Map[uuid.UUID]Connector. Optimized for read-heavy fan-out.
	conns  sync.Map
	count  atomic.Int64
	config hubConfig
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			sendTimeout: DefaultSendTimeout,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Broadcast(ev event.Eventer) int {
	delivered := 0
	h.conns.Range(func(_, val any) bool {
		if conn, ok := val.(Connector); ok {
			if conn.Send(ev, h.config.sendTimeout) {
				delivered++
			}
		}
		return true
	})
	return delivered
}

func (h *Hub) Register(conn Connector) {
	if _, loaded := h.conns.LoadOrStore(conn.GetID(), conn); !loaded {
		h.count.Add(1)
	}
}

func (h *Hub) Unregister(connID uuid.UUID) {
	if val, loaded := h.conns.LoadAndDelete(connID); loaded {
		h.count.Add(-1)
		if conn, ok := val.(Connector); ok {
			conn.Close()
		}
	}
}

func (h *Hub) Count() int {
	return int(h.count.Load())
}

// Shutdown closes every remaining connection. Used on process stop.
func (h *Hub) Shutdown() {
	h.conns.Range(func(key, val any) bool {
		h.conns.Delete(key)
		h.count.Add(-1)
		if conn, ok := val.(Connector); ok {
			conn.Close()
		}
		return true
	})
}
