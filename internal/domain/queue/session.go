package queue

import (
	"sync"
	"time"

	"github.com/chatrelay/relay-service/internal/domain/model"
)

// DefaultSessionLogSize bounds the session log when no capacity is configured.
const DefaultSessionLogSize = 1000

// SessionLog is a capacity-bounded FIFO of connection lifecycle events.
// It has no coupling to the message pipeline beyond being notified of
// connects and disconnects.
type SessionLog struct {
	mu       sync.Mutex
	events   []model.SessionEvent
	capacity int
	now      func() time.Time
}

func NewSessionLog(capacity int) *SessionLog {
	if capacity <= 0 {
		capacity = DefaultSessionLogSize
	}
	return &SessionLog{capacity: capacity, now: time.Now}
}

// Enqueue appends a lifecycle event, evicting the oldest when full.
func (s *SessionLog) Enqueue(user string, kind model.SessionEventKind) model.SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := model.SessionEvent{
		User:       user,
		Kind:       kind,
		OccurredAt: s.now(),
		Status:     model.SessionPending,
	}
	if len(s.events) == s.capacity {
		copy(s.events, s.events[1:])
		s.events = s.events[:len(s.events)-1]
	}
	s.events = append(s.events, ev)
	return ev
}

// Dequeue consumes the oldest event, marking it processed.
func (s *SessionLog) Dequeue() (model.SessionEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return model.SessionEvent{}, false
	}
	ev := s.events[0]
	ev.Status = model.SessionProcessed
	s.events = s.events[1:]
	return ev, true
}

// Peek returns the oldest event without consuming it.
func (s *SessionLog) Peek() (model.SessionEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return model.SessionEvent{}, false
	}
	return s.events[0], true
}

func (s *SessionLog) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Clear drops all events and returns how many were removed.
func (s *SessionLog) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	s.events = nil
	return n
}
