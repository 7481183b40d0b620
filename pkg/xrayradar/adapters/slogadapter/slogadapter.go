// Package slogadapter provides a log/slog handler that forwards records to a
// tracker, either as events or as console breadcrumbs.
//
//	logger := slog.New(slogadapter.NewHandler(tracker)).With(slogadapter.LoggerKey, "billing")
//	logger.ErrorContext(ctx, "charge failed", "err", err)
package slogadapter

import (
	"context"
	"log/slog"
	"maps"
	"runtime"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
	"github.com/xrayradar/xrayradar-go/pkg/xrayradar/adapters/internal/logcapture"
)

// LoggerKey is the attribute that names the logger. slog has no logger
// names of its own.
const LoggerKey = "logger"

// LevelCritical is the slog level mapped, along with anything above it, to fatal.
const LevelCritical = slog.LevelError + 4

// Option configures the handler.
type Option func(*logcapture.Options)

// WithMinLevel sets the lowest captured level (default: warning).
func WithMinLevel(level xrayradar.Level) Option {
	return func(o *logcapture.Options) {
		o.MinLevel = level
	}
}

// WithLoggerPrefix restricts capture to loggers whose name starts with prefix.
func WithLoggerPrefix(prefix string) Option {
	return func(o *logcapture.Options) {
		o.Prefix = prefix
	}
}

// WithExclude skips the named loggers.
func WithExclude(names ...string) Option {
	return func(o *logcapture.Options) {
		for _, n := range names {
			o.Exclude[n] = true
		}
	}
}

// WithBreadcrumbs records entries as console breadcrumbs instead of events.
func WithBreadcrumbs(enabled bool) Option {
	return func(o *logcapture.Options) {
		o.Breadcrumbs = enabled
	}
}

// Handler is a slog.Handler backed by a Capturer.
type Handler struct {
	capturer xrayradar.Capturer
	opts     logcapture.Options
	logger   string
	group    string
	attrs    map[string]any
	err      error
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a handler.
func NewHandler(c xrayradar.Capturer, opts ...Option) *Handler {
	o := logcapture.Defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &Handler{capturer: c, opts: o}
}

// Level maps a slog level to an event level.
func Level(l slog.Level) xrayradar.Level {
	switch {
	case l < slog.LevelInfo:
		return xrayradar.LevelDebug
	case l < slog.LevelWarn:
		return xrayradar.LevelInfo
	case l < slog.LevelError:
		return xrayradar.LevelWarning
	case l < LevelCritical:
		return xrayradar.LevelError
	default:
		return xrayradar.LevelFatal
	}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return Level(l).AtLeast(h.opts.MinLevel)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	clone := h.clone()
	r.Attrs(func(a slog.Attr) bool {
		clone.add(h.group, a)
		return true
	})
	if !clone.opts.Enabled(Level(r.Level), clone.logger) {
		return nil
	}

	rec := logcapture.Record{
		Level:   Level(r.Level),
		Logger:  clone.logger,
		Message: r.Message,
		Err:     clone.err,
	}
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		rec.Caller = frame.Function
		rec.Line = frame.Line
	}
	if len(clone.attrs) > 0 {
		rec.Attrs = clone.attrs
	}

	logcapture.Dispatch(ctx, h.capturer, h.opts, rec)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, a := range attrs {
		clone.add(h.group, a)
	}
	return clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.group = h.group + name + "."
	return clone
}

func (h *Handler) clone() *Handler {
	c := *h
	c.attrs = make(map[string]any, len(h.attrs))
	maps.Copy(c.attrs, h.attrs)
	return &c
}

// add flattens a into h.attrs. The logger name and the first error value
// are lifted out of the attributes.
func (h *Handler) add(prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.add(p, ga)
		}
		return
	}
	if prefix == "" && a.Key == LoggerKey {
		h.logger = a.Value.String()
		return
	}
	if err, ok := a.Value.Any().(error); ok && h.err == nil {
		h.err = err
		return
	}
	h.attrs[prefix+a.Key] = a.Value.Any()
}
