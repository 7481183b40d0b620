// Package async provides a transport wrapper with a bounded queue.
// Events are queued and delivered by a background worker; the oldest queued
// event is dropped when the queue is full. The tracker never installs this
// wrapper itself: hosts opt in when capture must not block on the network.
package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// ErrClosed is returned by SendEvent after Close.
var ErrClosed = errors.New("async transport is closed")

// Option configures the async transport.
type Option func(*asyncConfig)

type asyncConfig struct {
	queueSize   int
	sendTimeout time.Duration
	onDropped   func(count int)
	onError     func(error)
}

// WithQueueSize sets the maximum number of queued events (default: 1000).
func WithQueueSize(size int) Option {
	return func(c *asyncConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithSendTimeout bounds each background delivery (default: 10s).
func WithSendTimeout(d time.Duration) Option {
	return func(c *asyncConfig) {
		if d > 0 {
			c.sendTimeout = d
		}
	}
}

// WithOnDropped sets a callback invoked when events are dropped due to queue overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *asyncConfig) {
		c.onDropped = fn
	}
}

// WithOnError sets a callback for background delivery failures, which are
// otherwise discarded.
func WithOnError(fn func(error)) Option {
	return func(c *asyncConfig) {
		c.onError = fn
	}
}

type queued struct {
	ctx   context.Context
	event xrayradar.Event
}

type asyncTransport struct {
	inner       xrayradar.Transport
	queue       chan queued
	done        chan struct{}
	closeOnce   sync.Once
	closeMu     sync.RWMutex
	closed      bool
	wg          sync.WaitGroup
	pending     atomic.Int64
	sendTimeout time.Duration
	onDropped   func(count int)
	onError     func(error)
}

// New wraps inner with a bounded queue. SendEvent returns immediately.
func New(inner xrayradar.Transport, opts ...Option) xrayradar.Transport {
	cfg := &asyncConfig{
		queueSize:   1000,
		sendTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &asyncTransport{
		inner:       inner,
		queue:       make(chan queued, cfg.queueSize),
		done:        make(chan struct{}),
		sendTimeout: cfg.sendTimeout,
		onDropped:   cfg.onDropped,
		onError:     cfg.onError,
	}

	t.wg.Add(1)
	go t.processLoop()

	return t
}

func (t *asyncTransport) processLoop() {
	defer t.wg.Done()
	for {
		select {
		case item := <-t.queue:
			t.deliver(item)
		case <-t.done:
			// Drain remaining events
			for {
				select {
				case item := <-t.queue:
					t.deliver(item)
				default:
					return
				}
			}
		}
	}
}

func (t *asyncTransport) deliver(item queued) {
	defer t.pending.Add(-1)
	ctx, cancel := context.WithTimeout(item.ctx, t.sendTimeout)
	defer cancel()
	if err := t.inner.SendEvent(ctx, item.event); err != nil && t.onError != nil {
		t.onError(err)
	}
}

// SendEvent enqueues the event. Values carried by ctx (such as a
// conversation context id) travel with it; its cancellation does not.
func (t *asyncTransport) SendEvent(ctx context.Context, event xrayradar.Event) error {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return ErrClosed
	}

	item := queued{ctx: context.WithoutCancel(ctx), event: event}
	t.pending.Add(1)
	select {
	case t.queue <- item:
		return nil
	default:
		t.dropOldestAndEnqueue(item)
		return nil
	}
}

func (t *asyncTransport) dropOldestAndEnqueue(item queued) {
	select {
	case <-t.queue:
		t.pending.Add(-1)
		t.dropped(1)
	default:
		// Queue was emptied by the worker
	}

	select {
	case t.queue <- item:
	default:
		t.pending.Add(-1)
		t.dropped(1)
	}
}

func (t *asyncTransport) dropped(n int) {
	if t.onDropped != nil {
		t.onDropped(n)
	}
}

// Flush blocks until every accepted event is delivered or dropped, then
// flushes the inner transport.
func (t *asyncTransport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for t.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return t.inner.Flush(ctx)
}

// Close stops accepting events, delivers what is queued, and closes the
// inner transport.
func (t *asyncTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		t.closeMu.Unlock()

		close(t.done)
		t.wg.Wait()
	})

	return t.inner.Close()
}
