package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatrelay/relay-service/config"
	"github.com/chatrelay/relay-service/internal/handler/ws"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
)

var Module = fx.Module("http-handler",
	fx.Provide(
		NewStatsHandler,
		ws.NewWSHandler,
		NewRouter,
	),
	fx.Invoke(RegisterServer),
)

func NewRouter(stats *StatsHandler, wsHandler *ws.WSHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", stats.Health)
	r.Get("/stats", stats.Stats)
	r.Handle("/ws", wsHandler)

	return r
}

// RegisterServer binds the HTTP server to the fx lifecycle.
func RegisterServer(lc fx.Lifecycle, cfg *config.Config, router *chi.Mux, logger *slog.Logger) {
	srv := &http.Server{
		Addr:              cfg.Service.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("http server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
