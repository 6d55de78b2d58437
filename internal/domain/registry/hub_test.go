package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/chatrelay/relay-service/internal/domain/registry"
)

func testEvent() event.Eventer {
	return event.NewMessageEvent(&model.Message{Text: "hi", Sender: "alice", Priority: model.PriorityNormal})
}

func TestHub_BroadcastReachesEveryConnection(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	conns := make([]registry.Connector, 3)
	for i := range conns {
		conns[i] = registry.NewConnector(context.Background(), "user", 4)
		hub.Register(conns[i])
	}
	assert.Equal(t, 3, hub.Count())

	delivered := hub.Broadcast(testEvent())
	assert.Equal(t, 3, delivered)

	for _, conn := range conns {
		select {
		case ev := <-conn.Recv():
			assert.Equal(t, event.NameMessage, ev.GetName())
		default:
			t.Fatal("connection did not receive the broadcast")
		}
	}
}

func TestHub_RegisterIsIdempotent(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	conn := registry.NewConnector(context.Background(), "alice", 1)
	hub.Register(conn)
	hub.Register(conn)
	assert.Equal(t, 1, hub.Count())
}

func TestHub_UnregisterClosesConnection(t *testing.T) {
	hub := registry.NewHub()
	defer hub.Shutdown()

	conn := registry.NewConnector(context.Background(), "alice", 1)
	hub.Register(conn)

	hub.Unregister(conn.GetID())
	assert.Zero(t, hub.Count())

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("unregister must terminate the connection")
	}

	// Unknown IDs are ignored.
	hub.Unregister(conn.GetID())
	assert.Zero(t, hub.Count())
}

func TestHub_SaturatedConnectionShedsEvents(t *testing.T) {
	hub := registry.NewHub(registry.WithSendTimeout(5 * time.Millisecond))
	defer hub.Shutdown()

	// Nobody drains this mailbox of one.
	conn := registry.NewConnector(context.Background(), "slow", 1)
	hub.Register(conn)

	assert.Equal(t, 1, hub.Broadcast(testEvent()))
	assert.Equal(t, 0, hub.Broadcast(testEvent()), "a full mailbox must not block the hub")
	assert.Equal(t, uint64(1), conn.Dropped())
}

func TestHub_Shutdown(t *testing.T) {
	hub := registry.NewHub()

	a := registry.NewConnector(context.Background(), "a", 1)
	b := registry.NewConnector(context.Background(), "b", 1)
	hub.Register(a)
	hub.Register(b)

	hub.Shutdown()
	assert.Zero(t, hub.Count())

	for _, conn := range []registry.Connector{a, b} {
		select {
		case <-conn.Done():
		case <-time.After(time.Second):
			t.Fatal("shutdown must terminate every connection")
		}
	}
}

func TestConnector_SendAfterCloseFails(t *testing.T) {
	conn := registry.NewConnector(context.Background(), "alice", 4)

	require.True(t, conn.Send(testEvent(), 10*time.Millisecond))

	conn.Close()
	conn.Close() // idempotent

	assert.False(t, conn.Send(testEvent(), 10*time.Millisecond))
}

func TestConnector_ParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := registry.NewConnector(ctx, "alice", 1)

	cancel()

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation must terminate the connection")
	}
	assert.False(t, conn.Send(testEvent(), 10*time.Millisecond))
}
