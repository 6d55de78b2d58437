package registry

import "time"

const (
	DefaultSendTimeout = 200 * time.Millisecond
	DefaultMailboxSize = 256
)

// Option is a functional configuration type for the Hub.
type Option func(*Hub)

// WithSendTimeout bounds how long a broadcast waits on one saturated
// connection before shedding the event for it.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.config.sendTimeout = d
		}
	}
}
