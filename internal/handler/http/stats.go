package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/chatrelay/relay-service/internal/service"
)

// StatsHandler exposes the liveness and observability endpoints. It only
// consumes pipeline stats; it has no queue access of its own.
type StatsHandler struct {
	pipeline  *service.Pipeline
	startedAt time.Time
}

func NewStatsHandler(pipeline *service.Pipeline) *StatsHandler {
	return &StatsHandler{
		pipeline:  pipeline,
		startedAt: time.Now(),
	}
}

// Health is the liveness summary: status plus engine stats.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"system":      "Priority Chat Relay",
		"version":     model.ServerVersion,
		"queue_stats": h.pipeline.Stats().Engine,
	})
}

// Stats is the detailed snapshot: engine stats plus stage depths and the
// connected-client count.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.pipeline.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"message_system":  stats.Engine,
		"queues":          stats.Queues,
		"connected_users": stats.Connected,
		"uptime_seconds":  int64(time.Since(h.startedAt).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
