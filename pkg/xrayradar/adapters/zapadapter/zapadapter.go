// Package zapadapter forwards zap log entries to a tracker, either as events
// or as console breadcrumbs.
//
//	core := zapcore.NewTee(existing, zapadapter.NewCore(tracker))
//	logger := zap.New(core, zap.AddCaller())
package zapadapter

import (
	"context"

	"go.uber.org/zap/zapcore"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
	"github.com/xrayradar/xrayradar-go/pkg/xrayradar/adapters/internal/logcapture"
)

// Option configures the core.
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

// Core is a zapcore.Core backed by a Capturer.
type Core struct {
	capturer xrayradar.Capturer
	opts     logcapture.Options
	fields   []zapcore.Field
}

var _ zapcore.Core = (*Core)(nil)

// NewCore creates a core.
func NewCore(c xrayradar.Capturer, opts ...Option) *Core {
	o := logcapture.Defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &Core{capturer: c, opts: o}
}

// Level maps a zap level to an event level. DPanic, Panic and Fatal map to fatal.
func Level(l zapcore.Level) xrayradar.Level {
	switch {
	case l <= zapcore.DebugLevel:
		return xrayradar.LevelDebug
	case l == zapcore.InfoLevel:
		return xrayradar.LevelInfo
	case l == zapcore.WarnLevel:
		return xrayradar.LevelWarning
	case l == zapcore.ErrorLevel:
		return xrayradar.LevelError
	default:
		return xrayradar.LevelFatal
	}
}

func (c *Core) Enabled(l zapcore.Level) bool {
	return Level(l).AtLeast(c.opts.MinLevel)
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.opts.Enabled(Level(ent.Level), ent.LoggerName) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	rec := logcapture.Record{
		Level:   Level(ent.Level),
		Logger:  ent.LoggerName,
		Message: ent.Message,
	}
	if ent.Caller.Defined {
		rec.Caller = ent.Caller.Function
		rec.Line = ent.Caller.Line
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range append(c.fields[:len(c.fields):len(c.fields)], fields...) {
		if err, ok := f.Interface.(error); ok && f.Type == zapcore.ErrorType && rec.Err == nil {
			rec.Err = err
			continue
		}
		f.AddTo(enc)
	}
	if len(enc.Fields) > 0 {
		rec.Attrs = enc.Fields
	}

	logcapture.Dispatch(context.Background(), c.capturer, c.opts, rec)
	return nil
}

func (c *Core) Sync() error {
	return nil
}
