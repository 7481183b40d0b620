// Package multi provides a transport that fans out to multiple transports.
// All transports receive all events; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

type multiTransport struct {
	transports []xrayradar.Transport
}

// New creates a transport that sends to every given transport. Nil entries
// are skipped.
func New(transports ...xrayradar.Transport) xrayradar.Transport {
	kept := make([]xrayradar.Transport, 0, len(transports))
	for _, t := range transports {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &multiTransport{transports: kept}
}

// SendEvent sends to all transports even if some fail. Errors are joined.
func (m *multiTransport) SendEvent(ctx context.Context, event xrayradar.Event) error {
	var errs []error
	for _, t := range m.transports {
		if err := t.SendEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush calls Flush on all transports, collecting any errors.
func (m *multiTransport) Flush(ctx context.Context) error {
	var errs []error
	for _, t := range m.transports {
		if err := t.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all transports, collecting any errors.
func (m *multiTransport) Close() error {
	var errs []error
	for _, t := range m.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
