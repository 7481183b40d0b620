// builder.go turns errors and messages plus context into canonical events.

package xrayradar

import (
	"maps"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Decision is the outcome of the drop policy for a built event.
type Decision int

const (
	// DecisionSend means the event should be delivered.
	DecisionSend Decision = iota
	// DecisionSampled means the sample draw dropped the event.
	DecisionSampled
	// DecisionFiltered means the event level is below the minimum level.
	DecisionFiltered
)

func (d Decision) String() string {
	switch d {
	case DecisionSend:
		return "send"
	case DecisionSampled:
		return "sampled"
	case DecisionFiltered:
		return "filtered"
	}
	return "unknown"
}

// Builder constructs events. It is safe for concurrent use.
type Builder struct {
	environment string
	release     string
	serverName  string
	sampleRate  float64
	minLevel    Level
	sample      func() float64
	now         func() time.Time
	newID       func() string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderSampler replaces the uniform [0,1) source used for sampling.
func WithBuilderSampler(fn func() float64) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.sample = fn
		}
	}
}

// WithBuilderClock replaces the time source for event timestamps.
func WithBuilderClock(fn func() time.Time) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.now = fn
		}
	}
}

// NewBuilder creates a Builder from validated settings.
func NewBuilder(cfg Config, opts ...BuilderOption) *Builder {
	b := &Builder{
		environment: cfg.Environment,
		release:     cfg.Release,
		serverName:  cfg.ServerName,
		sampleRate:  cfg.SampleRate,
		minLevel:    cfg.MinLevel,
		sample:      rand.Float64,
		now:         time.Now,
		newID:       newEventID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// newEventID returns a time-ordered UUIDv7, falling back to a random UUID.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// BuildFromException builds an error-level event from err. The exception
// chain is recorded innermost cause first; frames are outermost caller
// first. A nil err yields an event without an exception payload.
func (b *Builder) BuildFromException(err error, snap ScopeSnapshot, ov Overrides) Event {
	return b.buildFromException(err, snap, ov, callerPCs(1))
}

func (b *Builder) buildFromException(err error, snap ScopeSnapshot, ov Overrides, pcs []uintptr) Event {
	ov = ov.resolveFields()
	event := b.base(LevelError, snap, ov)
	if err != nil {
		event.Exception = &ExceptionList{Values: extractExceptions(err, pcs)}
	}
	return event
}

// BuildFromMessage builds an event carrying text at level. Aliases such as
// "warn" and "critical" are normalized; an empty or unknown level means info.
func (b *Builder) BuildFromMessage(text string, level Level, snap ScopeSnapshot, ov Overrides) Event {
	ov = ov.resolveFields()
	level = normalizeLevel(level, LevelInfo)
	event := b.base(level, snap, ov)
	if ov.Message == "" {
		event.Message = text
	}
	return event
}

// base assembles the fields shared by both event kinds. Overrides win over
// the snapshot; tags and extra are merged key by key.
func (b *Builder) base(level Level, snap ScopeSnapshot, ov Overrides) Event {
	event := Event{
		EventID:     b.newID(),
		Timestamp:   b.now().UTC(),
		Level:       level,
		Message:     ov.Message,
		Logger:      ov.Logger,
		Platform:    "go",
		SDK:         SDKInfo{Name: SDKName, Version: SDKVersion},
		Environment: firstNonEmpty(ov.Environment, b.environment),
		Release:     firstNonEmpty(ov.Release, b.release),
		ServerName:  firstNonEmpty(ov.ServerName, b.serverName),
		Fingerprint: ov.Fingerprint,
	}
	if ov.Level != "" {
		event.Level = normalizeLevel(ov.Level, level)
	}

	event.Tags = mergeMaps(snap.Tags, ov.Tags)
	event.Extra = mergeMaps(snap.Extra, ov.Extra)

	switch {
	case ov.User != nil:
		u := *ov.User
		event.User = &u
	case snap.User != nil:
		u := *snap.User
		event.User = &u
	}

	if ov.Request != nil {
		r := *ov.Request
		r.Headers = maps.Clone(r.Headers)
		event.Request = &r
	}

	if len(snap.Breadcrumbs) > 0 {
		event.Breadcrumbs = append([]Breadcrumb(nil), snap.Breadcrumbs...)
	}
	return event
}

// Decide applies the drop policy: minimum level first, then sampling.
func (b *Builder) Decide(e Event) Decision {
	if !e.Level.AtLeast(b.minLevel) {
		return DecisionFiltered
	}
	if b.sampleRate < 1 && b.sample() >= b.sampleRate {
		return DecisionSampled
	}
	return DecisionSend
}

func mergeMaps[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
