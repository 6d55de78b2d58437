package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/model"
)

// Engine admits messages, assigns their priority and sequence, and hands
// them back in total (priority, sequence) order. It owns the pending heap
// and the history buffer; neither is ever exposed raw.
type Engine struct {
	mu       sync.Mutex
	pending  messageHeap
	history  *History
	detector *Detector
	seq      uint64
	now      func() time.Time
}

func NewEngine(detector *Detector, history *History) *Engine {
	return &Engine{
		history:  history,
		detector: detector,
		now:      time.Now,
	}
}

// Admit validates nothing: callers hand it sanitized input. A valid manual
// priority is used verbatim; anything else falls through to automatic
// detection. The admitted message is pushed into the pending set and a copy
// is retained in history.
func (e *Engine) Admit(text, sender string, manual model.Priority) *model.Message {
	priority, source := e.detector.Detect(text), model.SourceAutomatic
	if manual.Valid() {
		priority, source = manual, model.SourceManual
	}
	return e.admit(text, sender, priority, source)
}

// AdmitSystem admits a server-originated notice. Invalid priorities default
// to NORMAL rather than running detection.
func (e *Engine) AdmitSystem(text string, priority model.Priority) *model.Message {
	if !priority.Valid() {
		priority = model.PriorityNormal
	}
	return e.admit(text, model.SystemSender, priority, model.SourceSystem)
}

func (e *Engine) admit(text, sender string, priority model.Priority, source model.PrioritySource) *model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	msg := &model.Message{
		Text:      text,
		Sender:    sender,
		Priority:  priority,
		Source:    source,
		Sequence:  e.seq,
		CreatedAt: e.now().UnixMilli(),
	}

	heap.Push(&e.pending, msg)
	e.history.Push(*msg)
	return msg
}

// Next removes and returns the pending message with the smallest
// (priority, sequence) pair.
func (e *Engine) Next() (*model.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return nil, false
	}
	return heap.Pop(&e.pending).(*model.Message), true
}

// Peek returns the same message Next would, without removing it.
func (e *Engine) Peek() (*model.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return nil, false
	}
	return e.pending[0], true
}

// Stats reports pending depth, history depth and a per-class breakdown of
// the not-yet-dequeued messages.
func (e *Engine) Stats() model.EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	breakdown := make(map[string]int)
	for _, m := range e.pending {
		breakdown[m.Priority.String()]++
	}
	return model.EngineStats{
		Pending:   len(e.pending),
		History:   e.history.Len(),
		Breakdown: breakdown,
	}
}

// HistorySnapshot exposes the retention buffer in admission order.
func (e *Engine) HistorySnapshot() []model.Message {
	return e.history.Snapshot()
}

// Clear drops all pending messages, keeping history. Returns the count dropped.
func (e *Engine) Clear() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.pending)
	e.pending = nil
	return n
}

// ClearAll drops pending messages and history and restarts the sequence.
func (e *Engine) ClearAll() (pendingCleared, historyCleared int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pendingCleared = len(e.pending)
	e.pending = nil
	historyCleared = e.history.Clear()
	e.seq = 0
	return pendingCleared, historyCleared
}

// messageHeap orders by priority ascending, then sequence ascending, so
// equal priorities drain FIFO.
type messageHeap []*model.Message

func (h messageHeap) Len() int { return len(h) }

func (h messageHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].Sequence < h[j].Sequence
}

func (h messageHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *messageHeap) Push(x any) {
	*h = append(*h, x.(*model.Message))
}

func (h *messageHeap) Pop() any {
	old := *h
	n := len(old)
	msg := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return msg
}
