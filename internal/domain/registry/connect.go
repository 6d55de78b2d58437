package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/google/uuid"
)

// Interface guard
var _ Connector = (*connect)(nil)

// Connector is the hub-facing view of a single client connection. Transport
// handlers (WebSocket) receive one per session and drain Recv until Done.
type Connector interface {
	GetID() uuid.UUID
	GetUser() string
	// Send enqueues an event for this connection, waiting up to timeout for
	// mailbox space. Returns false if the connection is closed or saturated.
	Send(ev event.Eventer, timeout time.Duration) bool
	Recv() <-chan event.Eventer
	// Done is closed when the connection is terminated. The mailbox channel
	// itself is never closed, so transports must select on both.
	Done() <-chan struct{}
	Dropped() uint64
	Close()
}

// connect is the concrete implementation, unexported to force interface usage.
type connect struct {
	id        uuid.UUID
	user      string
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc

	// mailbox decouples the broadcasting hub from the socket write pump, so
	// one slow consumer cannot stall delivery to everyone else.
	mailbox chan event.Eventer

	closeOnce sync.Once
	dropped   atomic.Uint64
}

// NewConnector creates a connector bound to ctx. Cancelling ctx (or calling
// Close) makes all pending and future sends fail and signals Done.
func NewConnector(ctx context.Context, user string, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)
	return &connect{
		id:        uuid.New(),
		user:      user,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		mailbox:   make(chan event.Eventer, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID { return c.id }
func (c *connect) GetUser() string  { return c.user }

func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	// A terminated connection never accepts, even with mailbox space left.
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.ctx.Done():
		return false
	case c.mailbox <- ev:
		return true
	case <-timer.C:
		// Saturated for the whole window: persistent slow consumer. Shed the
		// event rather than hold the hub hostage.
		c.dropped.Add(1)
		return false
	}
}

func (c *connect) Recv() <-chan event.Eventer { return c.mailbox }

func (c *connect) Done() <-chan struct{} { return c.ctx.Done() }

// Dropped reports how many events were shed due to backpressure.
func (c *connect) Dropped() uint64 { return c.dropped.Load() }

// Close terminates the session. Idempotent: the hub (shutdown), the handler
// (defer) and unregistration may all race to call it.
func (c *connect) Close() {
	c.closeOnce.Do(c.cancelFn)
}
