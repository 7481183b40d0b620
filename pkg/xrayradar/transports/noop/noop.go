// Package noop provides a transport that discards all events.
// Useful in tests and for disabling delivery without removing capture calls.
package noop

import (
	"context"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

type noopTransport struct{}

// New creates a transport whose methods do nothing and return nil.
func New() xrayradar.Transport {
	return noopTransport{}
}

func (noopTransport) SendEvent(context.Context, xrayradar.Event) error {
	return nil
}

func (noopTransport) Flush(context.Context) error {
	return nil
}

func (noopTransport) Close() error {
	return nil
}
