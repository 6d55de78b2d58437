package queue

import (
	"fmt"
	"sync"

	"github.com/chatrelay/relay-service/internal/domain/model"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultHistorySize bounds the retention buffer when no capacity is configured.
const DefaultHistorySize = 1000

// History is a fixed-capacity, admission-ordered retention buffer.
//
// It is backed by an LRU cache keyed by sequence number: entries are only
// ever added, never looked up, so the cache's recency order degenerates to
// pure admission order and eviction always removes the oldest entry.
type History struct {
	mu        sync.Mutex
	entries   *lru.Cache[uint64, model.Message]
	latest    model.Message
	hasLatest bool
}

func NewHistory(capacity int) (*History, error) {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	entries, err := lru.New[uint64, model.Message](capacity)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return &History{entries: entries}, nil
}

// Push retains a copy of the message, evicting the oldest entry when full.
func (h *History) Push(m model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries.Add(m.Sequence, m)
	h.latest = m
	h.hasLatest = true
}

// Snapshot returns retained messages in admission order. The slice is a
// copy, safe from future mutation of the buffer.
func (h *History) Snapshot() []model.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries.Values()
}

// Latest returns the most recently admitted message.
func (h *History) Latest() (model.Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasLatest
}

// Clear empties the buffer and returns the number of evicted entries.
func (h *History) Clear() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.entries.Len()
	h.entries.Purge()
	h.hasLatest = false
	return n
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries.Len()
}
