// transport.go defines the delivery interface.

package xrayradar

import (
	"context"

	"github.com/rs/zerolog"
)

// Transport delivers events to a collector.
//
// Implementations must be safe for concurrent use. SendEvent must not modify
// the event it is given.
type Transport interface {
	// SendEvent delivers one event. The context bounds the delivery.
	SendEvent(ctx context.Context, event Event) error

	// Flush blocks until buffered events are delivered or ctx is done.
	Flush(ctx context.Context) error

	// Close releases resources. Later sends fail.
	Close() error
}

// debugTransport prints events through the tracker's logger instead of
// sending them. New installs it when Debug is set and no DSN is configured.
type debugTransport struct {
	logger zerolog.Logger
}

func (d debugTransport) SendEvent(_ context.Context, event Event) error {
	entry := d.logger.Info().
		Str("event_id", event.EventID).
		Str("level", string(event.Level))
	if event.Exception != nil && len(event.Exception.Values) > 0 {
		last := event.Exception.Values[len(event.Exception.Values)-1]
		entry = entry.Str("exception", last.Type+": "+last.Value)
	}
	if len(event.Tags) > 0 {
		entry = entry.Interface("tags", event.Tags)
	}
	entry.Msg(firstNonEmpty(event.Message, "event captured"))
	return nil
}

func (debugTransport) Flush(context.Context) error { return nil }
func (debugTransport) Close() error                { return nil }
