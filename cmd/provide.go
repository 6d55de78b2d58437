package cmd

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/chatrelay/relay-service/config"
	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/chatrelay/relay-service/internal/domain/queue"
	"github.com/chatrelay/relay-service/internal/domain/registry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
)

// ProvideLogger routes slog records through the otel log bridge: the stdout
// exporter keeps local visibility and any collector attached in deployment
// sees the same stream, resource-tagged.
func ProvideLogger(cfg *config.Config, provider *sdklog.LoggerProvider) *slog.Logger {
	logger := slog.New(otelslog.NewHandler(cfg.Service.Name,
		otelslog.WithLoggerProvider(provider),
		otelslog.WithSource(true),
	)).With("service", cfg.Service.Name)
	slog.SetDefault(logger)
	return logger
}

// ProvideTelemetry installs the metric and log providers. Counters surface
// in whatever reader gets attached in deployment; locally they are cheap
// no-ops. Log severity below the configured level is cut at the processor.
func ProvideTelemetry(lc fx.Lifecycle, cfg *config.Config) (metric.Meter, *sdklog.LoggerProvider, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.Service.Name),
		attribute.String("service.version", model.ServerVersion),
	)

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(meterProvider)

	exporter, err := stdoutlog.New()
	if err != nil {
		return nil, nil, err
	}
	logProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(minsev.NewLogProcessor(
			sdklog.NewSimpleProcessor(exporter),
			severityFromLevel(cfg.Service.LogLevel),
		)),
	)
	global.SetLoggerProvider(logProvider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return errors.Join(logProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
		},
	})

	return meterProvider.Meter("relay-pipeline"), logProvider, nil
}

func severityFromLevel(level string) minsev.Severity {
	switch strings.ToLower(level) {
	case "debug":
		return minsev.SeverityDebug
	case "warn":
		return minsev.SeverityWarn
	case "error":
		return minsev.SeverityError
	default:
		return minsev.SeverityInfo
	}
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

// ProvideDetector builds the keyword detector from configuration and keeps
// it in sync with config file changes.
func ProvideDetector(cfg *config.Config, logger *slog.Logger) *queue.Detector {
	detector := queue.NewDetector(tableFromConfig(cfg))

	cfg.Watch(func(fresh *config.Config) {
		detector.Swap(tableFromConfig(fresh))
		logger.Info("keyword detection table reloaded")
	})

	return detector
}

func tableFromConfig(cfg *config.Config) queue.KeywordTable {
	table := queue.DefaultKeywordTable()
	if len(cfg.Detection.UrgentKeywords) > 0 {
		table.Urgent = cfg.Detection.UrgentKeywords
	}
	if len(cfg.Detection.HighKeywords) > 0 {
		table.High = cfg.Detection.HighKeywords
	}
	return table
}

func ProvideHub(cfg *config.Config) registry.Hubber {
	return registry.NewHub(registry.WithSendTimeout(cfg.Pipeline.SendTimeout))
}
