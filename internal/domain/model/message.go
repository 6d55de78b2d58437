package model

import "time"

// Priority is one of four fixed urgency classes attached to every message.
// Lower value means higher urgency.
type Priority int

const (
	// [ZERO_VALUE_GUARD] WE START FROM 1 TO DISTINGUISH FROM UNINITIALIZED DATA
	PriorityUrgent Priority = iota + 1
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// Valid reports whether p is one of the four known priority classes.
// Anything else is silently treated as "no manual override" upstream.
func (p Priority) Valid() bool {
	return p >= PriorityUrgent && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "URGENT"
	case PriorityHigh:
		return "HIGH"
	case PriorityLow:
		return "LOW"
	default:
		return "NORMAL"
	}
}

// PrioritySource records the provenance of a message's priority value.
type PrioritySource string

const (
	SourceManual    PrioritySource = "manual"
	SourceAutomatic PrioritySource = "auto"
	SourceSystem    PrioritySource = "system"
)

// SystemSender is the display name attached to server-originated messages.
const SystemSender = "SYSTEM"

// [MESSAGE] CORE ENTITY FLOWING THROUGH THE PIPELINE
// Once a message leaves the priority engine it is treated as immutable:
// every stage reads it, none mutates it.
type Message struct {
	Text     string
	Sender   string
	Priority Priority
	Source   PrioritySource

	// Sequence is a monotonic admission-order counter, unique per process
	// lifetime. Used only to break ties between equal priorities.
	Sequence uint64

	// CreatedAt is the admission time in Unix milliseconds.
	CreatedAt int64
}

// AdmittedAt returns the admission time as a time.Time.
func (m *Message) AdmittedAt() time.Time {
	return time.UnixMilli(m.CreatedAt)
}
