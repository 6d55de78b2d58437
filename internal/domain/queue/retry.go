package queue

import (
	"sync"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/model"
)

// DefaultMaxRetries caps delivery attempts when none is configured.
const DefaultMaxRetries = 5

type retryEntry struct {
	msg       *model.Message
	attempt   int
	notBefore time.Time
}

// RetryOption configures a RetryStage.
type RetryOption func(*RetryStage)

// WithClock substitutes the time source. Tests use it to step through
// backoff windows without sleeping.
func WithClock(now func() time.Time) RetryOption {
	return func(r *RetryStage) { r.now = now }
}

// WithDropHook installs an observability callback invoked once per message
// permanently dropped after exhausting its attempts.
func WithDropHook(hook func(*model.Message, int)) RetryOption {
	return func(r *RetryStage) { r.onDrop = hook }
}

// RetryStage holds messages whose delivery failed until their exponential
// backoff deadline passes.
//
// Entries stay in failure-enqueue order, not deadline order, and readiness
// inspects only the head: a not-yet-ready head hides later entries even if
// their deadlines have passed. The unfairness is accepted to keep the stage
// a plain FIFO.
type RetryStage struct {
	mu         sync.Mutex
	entries    []retryEntry
	maxRetries int
	dropped    uint64
	now        func() time.Time
	onDrop     func(*model.Message, int)
}

func NewRetryStage(maxRetries int, opts ...RetryOption) *RetryStage {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	r := &RetryStage{
		maxRetries: maxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue records a failed delivery. The deadline grows as 2^attempt
// seconds from now; callers re-enqueue with attempt+1 after each further
// failure.
func (r *RetryStage) Enqueue(m *model.Message, attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, retryEntry{
		msg:       m,
		attempt:   attempt,
		notBefore: r.now().Add(backoff(attempt)),
	})
}

// Ready consumes and returns the head entry once its deadline has passed.
// A head still inside its backoff window is left in place untouched.
func (r *RetryStage) Ready() (*model.Message, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyLocked()
}

func (r *RetryStage) readyLocked() (*model.Message, int, bool) {
	if len(r.entries) == 0 {
		return nil, 0, false
	}
	head := r.entries[0]
	if r.now().Before(head.notBefore) {
		return nil, 0, false
	}
	r.entries[0] = retryEntry{}
	r.entries = r.entries[1:]
	return head.msg, head.attempt, true
}

// Process returns the next message due for redelivery. A message whose
// attempt count reached the cap is consumed and dropped instead; the drop
// is silent apart from the hook and counter.
func (r *RetryStage) Process() (*model.Message, int, bool) {
	r.mu.Lock()
	msg, attempt, ok := r.readyLocked()
	if ok && attempt >= r.maxRetries {
		r.dropped++
		hook := r.onDrop
		r.mu.Unlock()
		if hook != nil {
			hook(msg, attempt)
		}
		return nil, 0, false
	}
	r.mu.Unlock()
	if !ok {
		return nil, 0, false
	}
	return msg, attempt, true
}

// Dropped returns the number of messages permanently discarded.
func (r *RetryStage) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *RetryStage) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// backoff is 2^attempt time units, one unit being a second.
func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30 // avoid shift overflow on absurd inputs
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}
