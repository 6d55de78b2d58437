package service

import (
	"context"
	"log/slog"

	"github.com/chatrelay/relay-service/config"
	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/chatrelay/relay-service/internal/domain/queue"
	"github.com/chatrelay/relay-service/internal/domain/registry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Pipeline stages, sized from configuration. Each owns its internal
		// container and exposes only the operations the coordinator needs.
		func(cfg *config.Config) (*queue.History, error) {
			return queue.NewHistory(cfg.Pipeline.HistorySize)
		},
		func(detector *queue.Detector, history *queue.History) *queue.Engine {
			return queue.NewEngine(detector, history)
		},
		func(cfg *config.Config) (*queue.BatchStage, error) {
			return queue.NewBatchStage(cfg.Pipeline.MinBatchSize, cfg.Pipeline.MaxBatchSize)
		},
		func(cfg *config.Config, logger *slog.Logger, meter metric.Meter) (*queue.RetryStage, error) {
			drops, err := meter.Int64Counter("relay.messages.dropped")
			if err != nil {
				return nil, err
			}
			return queue.NewRetryStage(cfg.Pipeline.MaxRetries,
				queue.WithDropHook(func(m *model.Message, attempt int) {
					drops.Add(context.Background(), 1)
					logger.Warn("message dropped after max retries",
						"sequence", m.Sequence,
						"sender", m.Sender,
						"attempts", attempt,
					)
				}),
			), nil
		},
		func(cfg *config.Config) *queue.SessionLog {
			return queue.NewSessionLog(cfg.Pipeline.SessionLogSize)
		},

		fx.Annotate(
			NewBroadcastDeliverer,
			fx.As(new(Deliverer)),
		),

		func(
			cfg *config.Config,
			engine *queue.Engine,
			batch *queue.BatchStage,
			retry *queue.RetryStage,
			sessions *queue.SessionLog,
			hub registry.Hubber,
			deliverer Deliverer,
			logger *slog.Logger,
			meter metric.Meter,
		) (*Pipeline, error) {
			return NewPipeline(engine, batch, retry, sessions, hub, deliverer, logger, meter, Options{
				MailboxSize: cfg.Pipeline.MailboxSize,
				SendTimeout: cfg.Pipeline.SendTimeout,
			})
		},
	),

	// Periodic retry drain: ready entries must surface even when the room
	// goes quiet.
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, p *Pipeline, logger *slog.Logger) {
		scheduler := NewScheduler(cfg.Pipeline.RetryDrainInterval, p.DrainRetries, logger)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				scheduler.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				scheduler.Stop()
				return nil
			},
		})
	}),
)
