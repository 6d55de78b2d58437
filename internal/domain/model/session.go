package model

import "time"

// SessionEventKind classifies connection lifecycle events.
type SessionEventKind string

const (
	SessionLogin     SessionEventKind = "login"
	SessionLogout    SessionEventKind = "logout"
	SessionReconnect SessionEventKind = "reconnect"
)

// SessionStatus tracks whether a session event has been consumed.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionProcessed SessionStatus = "processed"
)

// SessionEvent is an entry in the append-only session log.
type SessionEvent struct {
	User       string           `json:"user"`
	Kind       SessionEventKind `json:"event_type"`
	OccurredAt time.Time        `json:"timestamp"`
	Status     SessionStatus    `json:"status"`
}
