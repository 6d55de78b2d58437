package service

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/event"
	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/chatrelay/relay-service/internal/domain/queue"
	"github.com/chatrelay/relay-service/internal/domain/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Options tune per-connection behavior of the coordinator.
type Options struct {
	MailboxSize int
	SendTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MailboxSize <= 0 {
		o.MailboxSize = registry.DefaultMailboxSize
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = registry.DefaultSendTimeout
	}
	return o
}

// Pipeline coordinates the message flow:
//
//	Admitted → PriorityOrdered → Batched → {Delivered | Failed → Retrying}
//
// Many producers call Submit concurrently; each shared structure guards
// itself, and delivery happens outside all locks.
type Pipeline struct {
	engine    *queue.Engine
	batch     *queue.BatchStage
	retry     *queue.RetryStage
	sessions  *queue.SessionLog
	hub       registry.Hubber
	deliverer Deliverer
	logger    *slog.Logger
	opts      Options

	admitted    metric.Int64Counter
	delivered   metric.Int64Counter
	failures    metric.Int64Counter
	redelivered metric.Int64Counter
}

func NewPipeline(
	engine *queue.Engine,
	batch *queue.BatchStage,
	retry *queue.RetryStage,
	sessions *queue.SessionLog,
	hub registry.Hubber,
	deliverer Deliverer,
	logger *slog.Logger,
	meter metric.Meter,
	opts Options,
) (*Pipeline, error) {
	admitted, err := meter.Int64Counter("relay.messages.admitted")
	if err != nil {
		return nil, err
	}
	delivered, err := meter.Int64Counter("relay.batches.delivered")
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("relay.delivery.failures")
	if err != nil {
		return nil, err
	}
	redelivered, err := meter.Int64Counter("relay.messages.redelivered")
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		engine:      engine,
		batch:       batch,
		retry:       retry,
		sessions:    sessions,
		hub:         hub,
		deliverer:   deliverer,
		logger:      logger,
		opts:        opts.withDefaults(),
		admitted:    admitted,
		delivered:   delivered,
		failures:    failures,
		redelivered: redelivered,
	}, nil
}

// Submit runs one inbound message through the pipeline. Validation
// rejections return before any queue is touched. A panic anywhere below is
// contained here so one client's message can never poison shared state
// visible to others.
func (p *Pipeline) Submit(ctx context.Context, rawText, rawSender string, manual model.Priority) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("submission panic recovered",
				"err", r,
				"stack", string(debug.Stack()),
			)
			err = ErrProcessing
		}
	}()

	text, err := ValidateMessage(rawText)
	if err != nil {
		return err
	}
	sender := ValidateUsername(rawSender)

	msg := p.engine.Admit(text, sender, manual)
	p.admitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("priority", msg.Priority.String()),
		attribute.String("source", string(msg.Source)),
	))

	// Pull the global minimum, which is not necessarily the message just
	// admitted: higher-priority messages already pending go out first.
	next, ok := p.engine.Next()
	if !ok {
		return nil
	}
	p.batch.Enqueue(next)

	if batch := p.batch.Flush(); len(batch) > 0 {
		p.deliverBatch(ctx, batch)
	}

	p.DrainRetries(ctx)
	return nil
}

// BroadcastSystem pushes a server-originated notice through the pipeline,
// force-flushing the batch stage so it goes out immediately.
func (p *Pipeline) BroadcastSystem(ctx context.Context, text string, priority model.Priority) {
	msg := p.engine.AdmitSystem(text, priority)
	p.admitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("priority", msg.Priority.String()),
		attribute.String("source", string(msg.Source)),
	))

	next, ok := p.engine.Next()
	if !ok {
		return
	}
	p.batch.Enqueue(next)

	if batch := p.batch.ForceFlush(); len(batch) > 0 {
		p.deliverBatch(ctx, batch)
	}
}

// deliverBatch attempts one delivery. The batch was already copied out of
// the stage, so a failure re-enqueues each member into the retry stage
// without any lock ambiguity about whether it was consumed.
func (p *Pipeline) deliverBatch(ctx context.Context, batch []*model.Message) {
	if err := p.deliverer.Deliver(ctx, event.NewBatchEvent(batch)); err != nil {
		p.failures.Add(ctx, 1)
		p.logger.Warn("batch delivery failed, scheduling retries",
			"err", err,
			"batch_size", len(batch),
		)
		for _, m := range batch {
			p.retry.Enqueue(m, 0)
		}
		return
	}
	p.delivered.Add(ctx, 1)
	p.logger.Debug("batch delivered", "batch_size", len(batch))
}

// DrainRetries redelivers every ready retry entry. Redelivery failures go
// back with an incremented attempt count, growing the backoff; the loop
// terminates because re-enqueued entries carry future deadlines.
func (p *Pipeline) DrainRetries(ctx context.Context) {
	for {
		msg, attempt, ok := p.retry.Process()
		if !ok {
			return
		}
		if err := p.deliverer.Deliver(ctx, event.NewMessageEvent(msg)); err != nil {
			p.failures.Add(ctx, 1)
			p.retry.Enqueue(msg, attempt+1)
			continue
		}
		p.redelivered.Add(ctx, 1)
		p.logger.Debug("retried message delivered",
			"sequence", msg.Sequence,
			"attempt", attempt,
		)
	}
}

// Subscribe attaches a new client: registers a connector with the hub, logs
// the session event, and replays the handshake, history and current stats
// to this connection only.
func (p *Pipeline) Subscribe(ctx context.Context, user string) registry.Connector {
	conn := registry.NewConnector(ctx, user, p.opts.MailboxSize)
	p.hub.Register(conn)
	p.sessions.Enqueue(user, model.SessionLogin)

	conn.Send(event.NewConnectedEvent(conn.GetID()), p.opts.SendTimeout)
	for _, m := range p.engine.HistorySnapshot() {
		conn.Send(event.NewMessageEvent(&m), p.opts.SendTimeout)
	}
	conn.Send(event.NewStatsEvent(p.Stats()), p.opts.SendTimeout)

	p.logger.Info("client subscribed",
		"conn_id", conn.GetID(),
		"user", user,
		"connected", p.hub.Count(),
	)
	return conn
}

// Unsubscribe detaches a client and logs the session event. In-flight batch
// and retry entries are unaffected: messages belong to everyone.
func (p *Pipeline) Unsubscribe(conn registry.Connector) {
	p.hub.Unregister(conn.GetID())
	p.sessions.Enqueue(conn.GetUser(), model.SessionLogout)
	p.logger.Info("client unsubscribed",
		"conn_id", conn.GetID(),
		"dropped_events", conn.Dropped(),
	)
}

// Stats assembles the full observability snapshot.
func (p *Pipeline) Stats() model.PipelineStats {
	return model.PipelineStats{
		Engine: p.engine.Stats(),
		Queues: model.QueueStats{
			BatchDepth:   p.batch.Size(),
			RetryDepth:   p.retry.Size(),
			SessionDepth: p.sessions.Size(),
		},
		Connected: p.hub.Count(),
	}
}
