package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs a task on a fixed interval. The pipeline uses it to drain
// ready retry entries even when no fresh submissions arrive to trigger an
// opportunistic drain.
type Scheduler struct {
	interval time.Duration
	task     func(ctx context.Context)
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewScheduler(interval time.Duration, task func(ctx context.Context), logger *slog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		logger:   logger,
	}
}

// Start launches the ticking goroutine. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.stopped = make(chan struct{})
	go s.run(ctx)
}

// Stop terminates the goroutine and waits for it to exit. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	stopped := s.stopped
	s.mu.Unlock()
	<-stopped
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.task(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler stopped")
			return
		case <-ticker.C:
			s.task(ctx)
		}
	}
}
