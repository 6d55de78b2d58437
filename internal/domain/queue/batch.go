package queue

import (
	"fmt"
	"sync"

	"github.com/chatrelay/relay-service/internal/domain/model"
)

// BatchStage accumulates priority-ordered outbound messages and releases
// them in groups for transmission efficiency. The underlying queue is
// unbounded; only the release size is constrained.
type BatchStage struct {
	mu    sync.Mutex
	queue []*model.Message
	min   int
	max   int
}

func NewBatchStage(minSize, maxSize int) (*BatchStage, error) {
	if minSize < 1 || maxSize < minSize {
		return nil, fmt.Errorf("batch stage: invalid thresholds min=%d max=%d", minSize, maxSize)
	}
	return &BatchStage{min: minSize, max: maxSize}, nil
}

// Enqueue appends to the tail, preserving the order messages left the engine.
func (b *BatchStage) Enqueue(m *model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, m)
}

// Flush releases up to max oldest-first messages, or nothing while the
// queue is below the minimum threshold. The size check and the drain happen
// under one lock so concurrent flushers never split a batch.
func (b *BatchStage) Flush() []*model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) < b.min {
		return nil
	}
	n := min(len(b.queue), b.max)
	return b.drain(n)
}

// ForceFlush releases everything regardless of size, including nothing.
// Used for system broadcasts that must not wait for the minimum.
func (b *BatchStage) ForceFlush() []*model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drain(len(b.queue))
}

func (b *BatchStage) drain(n int) []*model.Message {
	batch := make([]*model.Message, n)
	copy(batch, b.queue[:n])

	rest := make([]*model.Message, len(b.queue)-n)
	copy(rest, b.queue[n:])
	b.queue = rest

	return batch
}

func (b *BatchStage) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
