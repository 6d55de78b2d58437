package event

type Kind int16

const (
	Connected      Kind = iota + 1 // [SYSTEM]
	MessageCreated                 // [BUSINESS]
	BatchCreated                   // [BUSINESS]
	StatsUpdated                   // [SYSTEM]
	Errored                        // [SYSTEM]
)

// Eventer defines the contract for all data packets flowing through the Hub.
type Eventer interface {
	GetID() string
	GetKind() Kind
	// GetName is the wire-level event name clients switch on.
	GetName() string
	GetOccurredAt() int64
	GetPayload() any
	// GetCached returns the serialized form set by the first marshaller,
	// so a broadcast to N connections encodes the payload once.
	GetCached() any
	SetCached(any)
}
