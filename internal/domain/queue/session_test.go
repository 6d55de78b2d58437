package queue_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/relay-service/internal/domain/model"
	"github.com/chatrelay/relay-service/internal/domain/queue"
)

func TestSessionLog_FIFO(t *testing.T) {
	s := queue.NewSessionLog(10)

	s.Enqueue("alice", model.SessionLogin)
	s.Enqueue("bob", model.SessionLogin)
	s.Enqueue("alice", model.SessionLogout)

	ev, ok := s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "alice", ev.User)
	assert.Equal(t, model.SessionLogin, ev.Kind)
	assert.Equal(t, model.SessionProcessed, ev.Status)

	ev, ok = s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "bob", ev.User)

	assert.Equal(t, 1, s.Size())
}

func TestSessionLog_PeekDoesNotConsume(t *testing.T) {
	s := queue.NewSessionLog(10)

	_, ok := s.Peek()
	assert.False(t, ok)

	s.Enqueue("alice", model.SessionLogin)

	ev, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, model.SessionPending, ev.Status, "peek must not mark the event processed")
	assert.Equal(t, 1, s.Size())
}

func TestSessionLog_EvictsOldestAtCapacity(t *testing.T) {
	s := queue.NewSessionLog(3)

	for i := 0; i < 5; i++ {
		s.Enqueue(fmt.Sprintf("user%d", i), model.SessionLogin)
	}

	assert.Equal(t, 3, s.Size())
	ev, ok := s.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "user2", ev.User, "the two oldest events should have been evicted")
}

func TestSessionLog_Clear(t *testing.T) {
	s := queue.NewSessionLog(10)

	s.Enqueue("alice", model.SessionLogin)
	s.Enqueue("alice", model.SessionLogout)

	assert.Equal(t, 2, s.Clear())
	assert.Zero(t, s.Size())
	_, ok := s.Dequeue()
	assert.False(t, ok)
}
