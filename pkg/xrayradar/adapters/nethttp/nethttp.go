// Package nethttp reports panics and server errors from net/http handlers.
//
// The middleware attaches a redacted request snapshot to each request
// context, so anything captured further down the handler chain carries it:
//
//	mux := http.NewServeMux()
//	handler := nethttp.Middleware(tracker, nethttp.WithCaptureServerErrors(true))(mux)
package nethttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// FrameworkTag is the value of the "framework" tag on every event.
const FrameworkTag = "net/http"

// panicCapturer is implemented by *xrayradar.Tracker.
type panicCapturer interface {
	CapturePanic(ctx context.Context, recovered any, opts ...xrayradar.CaptureOption) string
}

// Option configures the adapter.
type Option func(*Adapter)

// WithRepanic re-raises recovered panics after capture instead of answering
// 500, leaving the outer recovery (usually net/http itself) in charge.
func WithRepanic(repanic bool) Option {
	return func(a *Adapter) {
		a.repanic = repanic
	}
}

// WithCaptureServerErrors reports responses with a 5xx status. 4xx responses
// are never reported.
func WithCaptureServerErrors(enabled bool) Option {
	return func(a *Adapter) {
		a.captureServerErrors = enabled
	}
}

// Adapter wires a Capturer into net/http.
type Adapter struct {
	capturer            xrayradar.Capturer
	repanic             bool
	captureServerErrors bool
}

// New creates an adapter.
func New(c xrayradar.Capturer, opts ...Option) *Adapter {
	a := &Adapter{capturer: c}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Middleware is shorthand for New(c, opts...).Handler.
func Middleware(c xrayradar.Capturer, opts ...Option) func(http.Handler) http.Handler {
	return New(c, opts...).Handler
}

// Handler wraps next.
func (a *Adapter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := xrayradar.NewRequestSnapshot(requestSource{r})
		r = r.WithContext(xrayradar.ContextWithRequest(r.Context(), snapshot))
		sw := &statusWriter{ResponseWriter: w}

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// The stdlib sentinel for aborting a response is not a failure.
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			a.capturePanic(r.Context(), rec)
			if a.repanic {
				panic(rec)
			}
			if !sw.wroteHeader {
				http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(sw, r)

		if a.captureServerErrors && sw.status >= http.StatusInternalServerError {
			a.capturer.CaptureMessage(r.Context(),
				fmt.Sprintf("HTTP %d: %s %s", sw.status, r.Method, r.URL.Path),
				xrayradar.WithLevel(xrayradar.LevelError),
				xrayradar.WithTag("framework", FrameworkTag),
				xrayradar.WithTag("http_status", fmt.Sprint(sw.status)),
			)
		}
	})
}

// OnError reports an error a handler chose to handle itself.
func (a *Adapter) OnError(r *http.Request, err error, opts ...xrayradar.CaptureOption) string {
	if err == nil {
		return ""
	}
	ctx := r.Context()
	if _, ok := xrayradar.RequestFromContext(ctx); !ok {
		ctx = xrayradar.ContextWithRequest(ctx, xrayradar.NewRequestSnapshot(requestSource{r}))
	}
	opts = append([]xrayradar.CaptureOption{xrayradar.WithTag("framework", FrameworkTag)}, opts...)
	return a.capturer.CaptureException(ctx, err, opts...)
}

func (a *Adapter) capturePanic(ctx context.Context, rec any) {
	tag := xrayradar.WithTag("framework", FrameworkTag)
	if pc, ok := a.capturer.(panicCapturer); ok {
		pc.CapturePanic(ctx, rec, tag)
		return
	}
	err, ok := rec.(error)
	if !ok {
		err = errors.New(fmt.Sprint(rec))
	}
	a.capturer.CaptureException(ctx, fmt.Errorf("panic: %w", err), tag, xrayradar.WithLevel(xrayradar.LevelFatal))
}

// requestSource exposes *http.Request as a xrayradar.RequestSource.
type requestSource struct {
	r *http.Request
}

func (s requestSource) Method() string { return s.r.Method }

func (s requestSource) URL() string {
	scheme := "http"
	if s.r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + s.r.Host + s.r.URL.RequestURI()
}

func (s requestSource) Headers() map[string][]string { return s.r.Header }

func (s requestSource) RemoteAddr() string { return s.r.RemoteAddr }

// statusWriter records the response status.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
