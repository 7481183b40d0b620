// Package logcapture holds the record routing shared by the logging adapters.
package logcapture

import (
	"context"
	"strings"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// BreadcrumbType marks breadcrumbs recorded from log lines.
const BreadcrumbType = "console"

// Record is a logging-library-neutral view of one log line.
type Record struct {
	Level   xrayradar.Level
	Logger  string
	Message string
	Caller  string // fully qualified function name, may be empty
	Line    int
	Err     error
	Attrs   map[string]any
}

// Options selects which records are captured and how.
type Options struct {
	// MinLevel is the lowest captured level (default: warning).
	MinLevel xrayradar.Level
	// Prefix, when set, restricts capture to loggers whose name starts with it.
	Prefix string
	// Exclude lists logger names that are never captured.
	Exclude map[string]bool
	// Breadcrumbs records console breadcrumbs instead of sending events.
	Breadcrumbs bool
}

// Defaults returns the options used when none are given.
func Defaults() Options {
	return Options{MinLevel: xrayradar.LevelWarning, Exclude: map[string]bool{}}
}

// Enabled reports whether a record at level from logger passes the filters.
func (o Options) Enabled(level xrayradar.Level, logger string) bool {
	if !level.AtLeast(o.MinLevel) {
		return false
	}
	if o.Exclude[logger] {
		return false
	}
	return o.Prefix == "" || strings.HasPrefix(logger, o.Prefix)
}

// Dispatch forwards rec to c. Callers check Enabled first.
func Dispatch(ctx context.Context, c xrayradar.Capturer, o Options, rec Record) {
	module, function := xrayradar.SplitFunctionName(rec.Caller)

	if o.Breadcrumbs {
		c.AddBreadcrumb(xrayradar.Breadcrumb{
			Category: rec.Logger,
			Message:  rec.Message,
			Level:    rec.Level,
			Type:     BreadcrumbType,
			Data: map[string]any{
				"logger":   rec.Logger,
				"module":   module,
				"function": function,
				"line":     rec.Line,
			},
		})
		return
	}

	opts := []xrayradar.CaptureOption{
		xrayradar.WithLevel(rec.Level),
		xrayradar.WithLoggerName(rec.Logger),
	}
	if module != "" {
		opts = append(opts, xrayradar.WithExtra("module", module), xrayradar.WithExtra("function", function))
	}
	if rec.Line > 0 {
		opts = append(opts, xrayradar.WithExtra("line", rec.Line))
	}
	for k, v := range rec.Attrs {
		opts = append(opts, xrayradar.WithExtra(k, v))
	}

	if rec.Err != nil {
		opts = append(opts, xrayradar.WithMessage(rec.Message))
		c.CaptureException(ctx, rec.Err, opts...)
		return
	}
	c.CaptureMessage(ctx, rec.Message, opts...)
}
