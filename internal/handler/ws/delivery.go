package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/chatrelay/relay-service/internal/domain/registry"
	wsmarshaller "github.com/chatrelay/relay-service/internal/handler/marshaller/ws"
	"github.com/chatrelay/relay-service/internal/service"
	"github.com/gorilla/websocket"
)

// submitRequest is the inbound frame shape clients send. A frame carrying
// Event instead of Message is a control request, not a submission.
type submitRequest struct {
	Event    string `json:"event,omitempty"`
	Message  string `json:"message"`
	User     string `json:"user"`
	Priority int    `json:"priority,omitempty"`
}

// Inbound control events.
const eventGetStats = "get_stats"

type WSHandler struct {
	logger   *slog.Logger
	pipeline *service.Pipeline
	upgrader websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, pipeline *service.Pipeline) *WSHandler {
	return &WSHandler{
		logger:   logger,
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := service.ValidateUsername(r.URL.Query().Get("user"))

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer sock.Close()

	conn := h.pipeline.Subscribe(r.Context(), user)
	defer h.pipeline.Unsubscribe(conn)

	h.logger.Info("ws opened", "user", user, "conn_id", conn.GetID())

	// Write pump: gorilla allows one concurrent writer, so every frame,
	// including error feedback, goes through the connector mailbox.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writePump(sock, conn)
	}()

	h.readPump(r.Context(), sock, conn)

	// Wake the write pump and wait so we never write after Close.
	conn.Close()
	<-writeDone
}

func (h *WSHandler) writePump(sock *websocket.Conn, conn registry.Connector) {
	for {
		select {
		case <-conn.Done():
			return
		case ev := <-conn.Recv():
			data, err := wsmarshaller.MarshallDeliveryEvent(ev)
			if err != nil {
				h.logger.Error("failed to marshal ws event", "error", err)
				continue
			}
			if err := sock.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("ws send failed", "error", err)
				return
			}
		}
	}
}

func (h *WSHandler) readPump(ctx context.Context, sock *websocket.Conn, conn registry.Connector) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws read failed", "error", err)
			}
			return
		}

		var req submitRequest
		if err := json.Unmarshal(data, &req); err != nil {
			conn.Send(event.NewErrorEvent("validation_error", "malformed request"), registry.DefaultSendTimeout)
			continue
		}

		if req.Event == eventGetStats {
			conn.Send(event.NewStatsEvent(h.pipeline.Stats()), registry.DefaultSendTimeout)
			continue
		}

		if err := h.pipeline.Submit(ctx, req.Message, req.User, model.Priority(req.Priority)); err != nil {
			kind := "processing_error"
			if service.IsValidation(err) {
				kind = "validation_error"
			}
			// Reported to the originating client only.
			conn.Send(event.NewErrorEvent(kind, err.Error()), registry.DefaultSendTimeout)
		}
	}
}
