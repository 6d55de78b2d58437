package cmd

import (
	"context"

	"github.com/chatrelay/relay-service/config"
	"github.com/chatrelay/relay-service/internal/adapter/pubsub"
	"github.com/chatrelay/relay-service/internal/domain/registry"
	httphandler "github.com/chatrelay/relay-service/internal/handler/http"
	"github.com/chatrelay/relay-service/internal/service"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideTelemetry,
			ProvideWatermillLogger,
			ProvideDetector,
			ProvideHub,
			pubsub.BuildPublisher,
			pubsub.NewEventDispatcher,
		),

		fx.Invoke(func(lc fx.Lifecycle, hub registry.Hubber) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					hub.Shutdown()
					return nil
				},
			})
		}),

		service.Module,
		httphandler.Module,

		// Announce the service once everything is wired.
		fx.Invoke(func(lc fx.Lifecycle, p *service.Pipeline) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					p.BroadcastSystem(ctx, "Priority chat relay online", 0)
					return nil
				},
			})
		}),
	)
}
