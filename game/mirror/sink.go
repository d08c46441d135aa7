package mirror

import (
	"context"
)

const (
	// StateKey holds the latest snapshot
	StateKey = "state"

	// EventsChannel receives one message per change
	EventsChannel = "events"
)

// Sink receives exported state
type Sink interface {
	// Store replaces the value under key
	Store(ctx context.Context, key string, data []byte) error

	// Publish sends data to the subscribers of channel
	Publish(ctx context.Context, channel string, data []byte) error

	Close() error
}
