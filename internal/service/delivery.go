package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatrelay/relay-service/config"
	"github.com/chatrelay/relay-service/internal/adapter/pubsub"
	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/chatrelay/relay-service/internal/domain/registry"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

// Deliverer is the single slow step of the pipeline: the network send.
// The coordinator calls it only after copying batches out of the queues,
// so no queue lock is ever held across a delivery attempt.
type Deliverer interface {
	Deliver(ctx context.Context, ev event.Eventer) error
}

// BroadcastDeliverer fans each event out to the local hub and the outbound
// bus, behind a circuit breaker. An open breaker turns every attempt into a
// fast failure that lands the messages in the retry stage instead of
// hammering a struggling broker.
type BroadcastDeliverer struct {
	hub        registry.Hubber
	dispatcher pubsub.EventDispatcher
	breaker    *gobreaker.CircuitBreaker
	topic      string
	logger     *slog.Logger
}

func NewBroadcastDeliverer(cfg *config.Config, hub registry.Hubber, dispatcher pubsub.EventDispatcher, logger *slog.Logger) *BroadcastDeliverer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "delivery",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BroadcastDeliverer{
		hub:        hub,
		dispatcher: dispatcher,
		breaker:    breaker,
		topic:      cfg.Broker.Topic,
		logger:     logger,
	}
}

func (d *BroadcastDeliverer) Deliver(ctx context.Context, ev event.Eventer) error {
	_, err := d.breaker.Execute(func() (any, error) {
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			reached := d.hub.Broadcast(ev)
			d.logger.Debug("hub broadcast",
				"event", ev.GetName(),
				"reached", reached,
			)
			return nil
		})
		g.Go(func() error {
			return d.dispatcher.Publish(gctx, d.topic, ev)
		})

		return nil, g.Wait()
	})
	if err != nil {
		return fmt.Errorf("deliver %s: %w", ev.GetName(), err)
	}
	return nil
}
