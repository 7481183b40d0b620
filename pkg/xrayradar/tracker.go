// tracker.go provides the Tracker facade: capture, context, and lifecycle.

package xrayradar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Tracker captures errors and messages and delivers them through a
// Transport. Capture methods never return errors or panic; failures are
// logged and counted.
type Tracker struct {
	cfg       Config
	builder   *Builder
	scope     *Scope
	transport Transport
	logger    zerolog.Logger
	metrics   *Metrics
	limiter   *rate.Limiter
	scrubber  *Scrubber
	startTime time.Time
	enabled   atomic.Bool
}

// Option configures a Tracker.
type Option func(*trackerConfig)

type trackerConfig struct {
	transport   Transport
	httpOptions []HTTPOption
	logger      *zerolog.Logger
	metrics     *Metrics
	limiter     *rate.Limiter
	scrubber    *Scrubber
	builderOpts []BuilderOption
}

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *trackerConfig) {
		c.transport = t
	}
}

// WithHTTPOptions passes extra options to the default HTTP transport, e.g.
// WithCompression or WithHTTPClient.
func WithHTTPOptions(opts ...HTTPOption) Option {
	return func(c *trackerConfig) {
		c.httpOptions = append(c.httpOptions, opts...)
	}
}

// WithLogger sets the logger for capture failures and debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(c *trackerConfig) {
		c.logger = &l
	}
}

// WithMetrics records capture outcomes and payload statistics.
func WithMetrics(m *Metrics) Option {
	return func(c *trackerConfig) {
		c.metrics = m
	}
}

// WithRateLimit drops events beyond limit per second, allowing bursts of
// burst. Dropped events count as rate_limited.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *trackerConfig) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithScrubbing redacts secrets and PII from events before delivery.
func WithScrubbing(cfg ScrubberConfig) Option {
	return func(c *trackerConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultScrubbing enables scrubbing with production-safe defaults.
func WithDefaultScrubbing() Option {
	return func(c *trackerConfig) {
		c.scrubber = NewScrubber(DefaultScrubberConfig())
	}
}

// WithSampler replaces the random source used for sampling.
func WithSampler(fn func() float64) Option {
	return func(c *trackerConfig) {
		c.builderOpts = append(c.builderOpts, WithBuilderSampler(fn))
	}
}

// WithClock replaces the time source for event and breadcrumb timestamps.
func WithClock(fn func() time.Time) Option {
	return func(c *trackerConfig) {
		c.builderOpts = append(c.builderOpts, WithBuilderClock(fn))
	}
}

// New validates cfg and creates a Tracker. Invalid settings return joined
// *ConfigError values; an invalid DSN returns an *InvalidDsnError. With
// Debug set and no DSN, events are printed through the logger instead of
// being sent.
func New(cfg Config, opts ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.resolved()

	hasDSN := strings.TrimSpace(cfg.DSN) != ""
	if hasDSN {
		if _, err := ParseDSN(cfg.DSN); err != nil {
			return nil, err
		}
	}

	tc := &trackerConfig{}
	for _, opt := range opts {
		opt(tc)
	}

	t := &Tracker{
		cfg:       cfg,
		builder:   NewBuilder(cfg, tc.builderOpts...),
		scope:     NewScope(cfg.MaxBreadcrumbs),
		metrics:   tc.metrics,
		limiter:   tc.limiter,
		scrubber:  tc.scrubber,
		startTime: time.Now(),
	}
	t.scope.now = t.builder.now

	switch {
	case tc.logger != nil:
		t.logger = *tc.logger
	case cfg.Debug:
		t.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Str("component", "xrayradar").
			Logger()
	default:
		t.logger = zerolog.Nop()
	}

	t.transport = tc.transport
	switch {
	case t.transport != nil:
	case !hasDSN:
		t.transport = debugTransport{logger: t.logger}
	default:
		httpOpts := []HTTPOption{
			WithTimeout(cfg.Timeout),
			WithMaxPayloadSize(cfg.MaxPayloadSize),
			WithAuthToken(cfg.AuthToken),
			WithVerifySSL(cfg.VerifySSL),
			WithTransportMetrics(tc.metrics),
		}
		transport, err := NewHTTPTransport(cfg.DSN, append(httpOpts, tc.httpOptions...)...)
		if err != nil {
			return nil, err
		}
		t.transport = transport
	}

	t.enabled.Store(true)
	entry := t.logger.Debug().Str("environment", cfg.Environment)
	if hasDSN {
		entry = entry.Str("dsn", RedactDSN(cfg.DSN))
	}
	entry.Msg("tracker initialized")
	return t, nil
}

// Config returns the resolved settings.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Enabled reports whether the tracker still captures events.
func (t *Tracker) Enabled() bool {
	return t.enabled.Load()
}

// Scope returns the tracker's context store.
func (t *Tracker) Scope() *Scope {
	return t.scope
}

// CaptureException reports err and returns the event id. A nil err, a
// closed tracker, or a failed delivery returns "". Events dropped by
// sampling, level filtering, or rate limiting return their id.
func (t *Tracker) CaptureException(ctx context.Context, err error, opts ...CaptureOption) (id string) {
	if err == nil {
		return ""
	}
	defer t.contain(&id)
	if !t.Enabled() {
		t.metrics.recordOutcome(OutcomeDisabled)
		return ""
	}
	ov := collectOverrides(opts)
	event := t.builder.buildFromException(err, t.scope.Snapshot(), ov, callerPCs(1))
	return t.capture(ctx, event)
}

// CaptureMessage reports msg at info level unless WithLevel says otherwise.
func (t *Tracker) CaptureMessage(ctx context.Context, msg string, opts ...CaptureOption) (id string) {
	defer t.contain(&id)
	if !t.Enabled() {
		t.metrics.recordOutcome(OutcomeDisabled)
		return ""
	}
	ov := collectOverrides(opts)
	event := t.builder.BuildFromMessage(msg, ov.Level, t.scope.Snapshot(), ov)
	return t.capture(ctx, event)
}

// CapturePanic reports a recovered panic value at fatal level. Non-error
// values are reported with exception type "panic".
func (t *Tracker) CapturePanic(ctx context.Context, recovered any, opts ...CaptureOption) (id string) {
	if recovered == nil {
		return ""
	}
	defer t.contain(&id)
	if !t.Enabled() {
		t.metrics.recordOutcome(OutcomeDisabled)
		return ""
	}
	err, isErr := recovered.(error)
	if !isErr {
		err = errors.New(fmt.Sprint(recovered))
	}
	ov := collectOverrides(append([]CaptureOption{WithLevel(LevelFatal)}, opts...))
	event := t.builder.buildFromException(err, t.scope.Snapshot(), ov, callerPCs(1))
	if !isErr && event.Exception != nil {
		values := event.Exception.Values
		values[len(values)-1].Type = "panic"
		values[len(values)-1].Module = ""
	}
	return t.capture(ctx, event)
}

// contain stops a panic raised while building or sending an event from
// reaching the caller. The capture then counts as failed.
func (t *Tracker) contain(id *string) {
	r := recover()
	if r == nil {
		return
	}
	*id = ""
	t.metrics.recordOutcome(OutcomeFailed)
	t.logger.Error().
		Str("panic", fmt.Sprint(r)).
		Str("outcome", OutcomeFailed).
		Msg("capture panicked")
}

// capture applies the drop policy, enrichment, and delivery.
func (t *Tracker) capture(ctx context.Context, event Event) string {
	if ctx == nil {
		ctx = context.Background()
	}

	switch t.builder.Decide(event) {
	case DecisionSampled:
		t.metrics.recordOutcome(OutcomeSampled)
		return event.EventID
	case DecisionFiltered:
		t.metrics.recordOutcome(OutcomeFiltered)
		return event.EventID
	}
	if t.limiter != nil && !t.limiter.Allow() {
		t.metrics.recordOutcome(OutcomeRateLimited)
		return event.EventID
	}

	if event.Request == nil {
		if r, ok := RequestFromContext(ctx); ok {
			event.Request = &r
		}
	}
	event.Contexts = map[string]any{"runtime": RuntimeContext(t.startTime)}
	if t.scrubber != nil {
		event = t.scrubber.ScrubEvent(event)
	}
	if len(event.Fingerprint) == 0 {
		event.Fingerprint = []string{Fingerprint(event)}
	}

	sendCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()
	if err := t.transport.SendEvent(sendCtx, event); err != nil {
		t.metrics.recordOutcome(OutcomeFailed)
		t.logger.Warn().
			Err(err).
			Str("event_id", event.EventID).
			Str("outcome", OutcomeFailed).
			Msg("failed to send event")
		return ""
	}

	t.metrics.recordOutcome(OutcomeSent)
	t.logger.Debug().
		Str("event_id", event.EventID).
		Str("level", string(event.Level)).
		Str("outcome", OutcomeSent).
		Msg("event sent")
	return event.EventID
}

// SetUser replaces the current user.
func (t *Tracker) SetUser(u User) {
	t.scope.SetUser(u)
}

// SetTag upserts a tag.
func (t *Tracker) SetTag(key, value string) {
	t.scope.SetTag(key, value)
}

// SetExtra upserts an extra value.
func (t *Tracker) SetExtra(key string, value any) {
	t.scope.SetExtra(key, value)
}

// AddBreadcrumb records a breadcrumb, evicting the oldest at capacity.
func (t *Tracker) AddBreadcrumb(b Breadcrumb) {
	t.scope.AddBreadcrumb(b)
}

// ClearBreadcrumbs empties the breadcrumb buffer.
func (t *Tracker) ClearBreadcrumbs() {
	t.scope.ClearBreadcrumbs()
}

// Flush waits for the transport to drain.
func (t *Tracker) Flush(ctx context.Context) error {
	if err := t.transport.Flush(ctx); err != nil {
		return fmt.Errorf("xrayradar: flush: %w", err)
	}
	return nil
}

// Close disables capture and closes the transport. Calling Close more than
// once is safe.
func (t *Tracker) Close() error {
	if !t.enabled.Swap(false) {
		return nil
	}
	t.logger.Debug().Msg("tracker closed")
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("xrayradar: close transport: %w", err)
	}
	return nil
}
