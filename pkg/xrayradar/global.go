// global.go holds the process-wide tracker and package-level helpers.

package xrayradar

import (
	"context"
	"sync"
)

var (
	globalMu      sync.RWMutex
	globalTracker *Tracker
)

// Init creates a tracker and installs it as the global one. A previously
// installed tracker is closed and replaced. On error the previous tracker
// stays installed.
func Init(cfg Config, opts ...Option) (*Tracker, error) {
	t, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	globalMu.Lock()
	prev := globalTracker
	globalTracker = t
	globalMu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return t, nil
}

// Get returns the global tracker, or nil before Init.
func Get() *Tracker {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalTracker
}

// Teardown closes the global tracker and clears the slot.
func Teardown() error {
	globalMu.Lock()
	t := globalTracker
	globalTracker = nil
	globalMu.Unlock()

	if t == nil {
		return nil
	}
	return t.Close()
}

// CaptureException reports err through the global tracker. Returns "" when
// no tracker is installed.
func CaptureException(ctx context.Context, err error, opts ...CaptureOption) string {
	if t := Get(); t != nil {
		return t.CaptureException(ctx, err, opts...)
	}
	return ""
}

// CaptureMessage reports msg through the global tracker.
func CaptureMessage(ctx context.Context, msg string, opts ...CaptureOption) string {
	if t := Get(); t != nil {
		return t.CaptureMessage(ctx, msg, opts...)
	}
	return ""
}

// SetUser sets the user on the global tracker.
func SetUser(u User) {
	if t := Get(); t != nil {
		t.SetUser(u)
	}
}

// SetTag sets a tag on the global tracker.
func SetTag(key, value string) {
	if t := Get(); t != nil {
		t.SetTag(key, value)
	}
}

// SetExtra sets an extra value on the global tracker.
func SetExtra(key string, value any) {
	if t := Get(); t != nil {
		t.SetExtra(key, value)
	}
}

// AddBreadcrumb adds a breadcrumb on the global tracker.
func AddBreadcrumb(b Breadcrumb) {
	if t := Get(); t != nil {
		t.AddBreadcrumb(b)
	}
}

// Flush flushes the global tracker.
func Flush(ctx context.Context) error {
	if t := Get(); t != nil {
		return t.Flush(ctx)
	}
	return nil
}
