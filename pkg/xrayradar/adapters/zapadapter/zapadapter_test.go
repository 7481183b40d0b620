package zapadapter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

type capture struct {
	err     error
	message string
	ov      xrayradar.Overrides
}

type fakeCapturer struct {
	mu          sync.Mutex
	captures    []capture
	breadcrumbs []xrayradar.Breadcrumb
}

func apply(opts []xrayradar.CaptureOption) xrayradar.Overrides {
	var ov xrayradar.Overrides
	for _, opt := range opts {
		opt(&ov)
	}
	return ov
}

func (f *fakeCapturer) CaptureException(_ context.Context, err error, opts ...xrayradar.CaptureOption) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, capture{err: err, ov: apply(opts)})
	return "id"
}

func (f *fakeCapturer) CaptureMessage(_ context.Context, msg string, opts ...xrayradar.CaptureOption) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, capture{message: msg, ov: apply(opts)})
	return "id"
}

func (f *fakeCapturer) AddBreadcrumb(b xrayradar.Breadcrumb) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breadcrumbs = append(f.breadcrumbs, b)
}

func TestLevel(t *testing.T) {
	tests := map[zapcore.Level]xrayradar.Level{
		zapcore.DebugLevel:  xrayradar.LevelDebug,
		zapcore.InfoLevel:   xrayradar.LevelInfo,
		zapcore.WarnLevel:   xrayradar.LevelWarning,
		zapcore.ErrorLevel:  xrayradar.LevelError,
		zapcore.DPanicLevel: xrayradar.LevelFatal,
		zapcore.PanicLevel:  xrayradar.LevelFatal,
		zapcore.FatalLevel:  xrayradar.LevelFatal,
	}
	for in, want := range tests {
		assert.Equal(t, want, Level(in), in.String())
	}
}

func TestCore_CapturesMessagesAndErrors(t *testing.T) {
	c := &fakeCapturer{}
	logger := zap.New(NewCore(c), zap.AddCaller()).Named("app")

	logger.Info("below the default threshold")
	logger.Warn("disk nearly full", zap.Int("percent", 93))
	boom := errors.New("connection reset")
	logger.With(zap.String("tenant", "acme")).Error("sync failed", zap.Error(boom))

	require.Len(t, c.captures, 2)

	warn := c.captures[0]
	assert.Equal(t, "disk nearly full", warn.message)
	assert.Equal(t, xrayradar.LevelWarning, warn.ov.Level)
	assert.Equal(t, "app", warn.ov.Logger)
	assert.EqualValues(t, 93, warn.ov.Extra["percent"])
	assert.Equal(t, "TestCore_CapturesMessagesAndErrors", warn.ov.Extra["function"])
	assert.Contains(t, warn.ov.Extra, "line")

	exc := c.captures[1]
	assert.ErrorIs(t, exc.err, boom)
	assert.Equal(t, "sync failed", exc.ov.Message)
	assert.Equal(t, xrayradar.LevelError, exc.ov.Level)
	assert.Equal(t, "acme", exc.ov.Extra["tenant"])
	assert.NotContains(t, exc.ov.Extra, "error")
}

func TestCore_Filters(t *testing.T) {
	c := &fakeCapturer{}
	core := NewCore(c, WithMinLevel(xrayradar.LevelError), WithLoggerPrefix("app"), WithExclude("app.noisy"))
	logger := zap.New(core)

	logger.Named("app").Warn("too low")
	logger.Named("lib").Error("wrong prefix")
	logger.Named("app").Named("noisy").Error("excluded")
	logger.Named("app").Named("billing").Error("kept")

	require.Len(t, c.captures, 1)
	assert.Equal(t, "kept", c.captures[0].message)
	assert.Equal(t, "app.billing", c.captures[0].ov.Logger)

	assert.False(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.FatalLevel))
}

func TestCore_Breadcrumbs(t *testing.T) {
	c := &fakeCapturer{}
	logger := zap.New(NewCore(c, WithBreadcrumbs(true), WithMinLevel(xrayradar.LevelInfo)), zap.AddCaller()).Named("ui")

	logger.Info("user opened settings")

	assert.Empty(t, c.captures)
	require.Len(t, c.breadcrumbs, 1)
	b := c.breadcrumbs[0]
	assert.Equal(t, "console", b.Type)
	assert.Equal(t, "ui", b.Category)
	assert.Equal(t, "user opened settings", b.Message)
	assert.Equal(t, xrayradar.LevelInfo, b.Level)
	assert.Equal(t, "ui", b.Data["logger"])
	assert.Equal(t, "TestCore_Breadcrumbs", b.Data["function"])
	assert.Greater(t, b.Data["line"], 0)
}

func TestCore_WithDoesNotShareFields(t *testing.T) {
	c := &fakeCapturer{}
	base := zap.New(NewCore(c))
	a := base.With(zap.String("branch", "a"))
	b := base.With(zap.String("branch", "b"))

	a.Error("from a")
	b.Error("from b")

	require.Len(t, c.captures, 2)
	assert.Equal(t, "a", c.captures[0].ov.Extra["branch"])
	assert.Equal(t, "b", c.captures[1].ov.Extra["branch"])
}
