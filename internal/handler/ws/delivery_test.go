package ws_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/chatrelay/relay-service/config"
	"github.com/chatrelay/relay-service/internal/adapter/pubsub"
	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/chatrelay/relay-service/internal/domain/queue"
	"github.com/chatrelay/relay-service/internal/domain/registry"
	"github.com/chatrelay/relay-service/internal/handler/ws"
	"github.com/chatrelay/relay-service/internal/service"
)

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	history, err := queue.NewHistory(queue.DefaultHistorySize)
	require.NoError(t, err)
	engine := queue.NewEngine(queue.NewDetector(queue.DefaultKeywordTable()), history)

	batch, err := queue.NewBatchStage(1, 50)
	require.NoError(t, err)

	hub := registry.NewHub()
	t.Cleanup(hub.Shutdown)

	ps := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })

	deliverer := service.NewBroadcastDeliverer(cfg, hub, pubsub.NewEventDispatcher(ps), logger)

	pipeline, err := service.NewPipeline(
		engine, batch, queue.NewRetryStage(3), queue.NewSessionLog(100),
		hub, deliverer, logger,
		noop.NewMeterProvider().Meter("test"),
		service.Options{},
	)
	require.NoError(t, err)

	srv := httptest.NewServer(ws.NewWSHandler(logger, pipeline))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + user
	sock, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sock.Close() })
	return sock
}

func readFrame(t *testing.T, sock *websocket.Conn) frame {
	t.Helper()

	require.NoError(t, sock.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := sock.ReadMessage()
	require.NoError(t, err)

	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestWSHandler_HandshakeAndStats(t *testing.T) {
	srv := newTestServer(t)
	sock := dial(t, srv, "alice")

	f := readFrame(t, sock)
	assert.Equal(t, event.NameConnected, f.Event)

	var handshake struct {
		Ok           bool   `json:"ok"`
		ConnectionID string `json:"connection_id"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &handshake))
	assert.True(t, handshake.Ok)
	assert.NotEmpty(t, handshake.ConnectionID)

	f = readFrame(t, sock)
	assert.Equal(t, event.NameQueueStats, f.Event)
}

func TestWSHandler_SubmitBroadcastsBatch(t *testing.T) {
	srv := newTestServer(t)
	sock := dial(t, srv, "alice")

	// Drain the subscription replay.
	readFrame(t, sock)
	readFrame(t, sock)

	require.NoError(t, sock.WriteJSON(map[string]any{
		"message": "the build is broken",
		"user":    "alice",
	}))

	f := readFrame(t, sock)
	assert.Equal(t, event.NameMessageBatch, f.Event)

	var batch []struct {
		Text         string `json:"text"`
		User         string `json:"user"`
		PriorityName string `json:"priority_name"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &batch))
	require.Len(t, batch, 1)
	assert.Equal(t, "the build is broken", batch[0].Text)
	assert.Equal(t, "alice", batch[0].User)
	assert.Equal(t, "URGENT", batch[0].PriorityName, "the keyword rule should classify this")
}

func TestWSHandler_ValidationErrorGoesToSenderOnly(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv, "alice")
	readFrame(t, alice)
	readFrame(t, alice)

	bob := dial(t, srv, "bob")
	readFrame(t, bob)
	readFrame(t, bob)

	require.NoError(t, alice.WriteJSON(map[string]any{"message": "   ", "user": "alice"}))

	f := readFrame(t, alice)
	assert.Equal(t, event.NameError, f.Event)

	var payload struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	assert.Equal(t, "validation_error", payload.Type)

	// Bob sees nothing.
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "a validation rejection must not be broadcast")
}

func TestWSHandler_GetStatsOnDemand(t *testing.T) {
	srv := newTestServer(t)
	sock := dial(t, srv, "alice")
	readFrame(t, sock)
	readFrame(t, sock)

	require.NoError(t, sock.WriteJSON(map[string]any{
		"message": "hold this in history",
		"user":    "alice",
	}))
	readFrame(t, sock) // the broadcast batch

	require.NoError(t, sock.WriteJSON(map[string]any{"event": "get_stats"}))

	f := readFrame(t, sock)
	assert.Equal(t, event.NameQueueStats, f.Event)

	var stats struct {
		MessageSystem struct {
			History int `json:"history_size"`
		} `json:"message_system"`
		ConnectedUsers int `json:"connected_users"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &stats))
	assert.Equal(t, 1, stats.MessageSystem.History)
	assert.Equal(t, 1, stats.ConnectedUsers)
}

func TestWSHandler_MalformedFrame(t *testing.T) {
	srv := newTestServer(t)
	sock := dial(t, srv, "alice")
	readFrame(t, sock)
	readFrame(t, sock)

	require.NoError(t, sock.WriteMessage(websocket.TextMessage, []byte("{not json")))

	f := readFrame(t, sock)
	assert.Equal(t, event.NameError, f.Event)
}
