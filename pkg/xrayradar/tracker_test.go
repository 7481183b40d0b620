package xrayradar

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// testTransport captures events for verification in tests.
type testTransport struct {
	mu      sync.Mutex
	events  []Event
	ctxs    []context.Context
	sendErr error
	flushed int
	closed  int
}

func (tr *testTransport) SendEvent(ctx context.Context, event Event) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.sendErr != nil {
		return tr.sendErr
	}
	tr.events = append(tr.events, event)
	tr.ctxs = append(tr.ctxs, ctx)
	return nil
}

func (tr *testTransport) Flush(ctx context.Context) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.flushed++
	return nil
}

func (tr *testTransport) Close() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.closed++
	return nil
}

func (tr *testTransport) getEvents() []Event {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	result := make([]Event, len(tr.events))
	copy(result, tr.events)
	return result
}

func newTestTracker(t *testing.T, opts ...Option) (*Tracker, *testTransport) {
	t.Helper()
	transport := &testTransport{}
	tracker, err := New(validConfig(), append([]Option{WithTransport(transport)}, opts...)...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return tracker, transport
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.SampleRate = 2

	_, err := New(cfg)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New error = %v, want *ConfigError", err)
	}
}

func TestNew_InvalidDSN(t *testing.T) {
	cfg := validConfig()
	cfg.DSN = "not-a-url"

	_, err := New(cfg)
	var dsnErr *InvalidDsnError
	if !errors.As(err, &dsnErr) {
		t.Fatalf("New error = %v, want *InvalidDsnError", err)
	}

	// A custom transport does not bypass DSN validation.
	_, err = New(cfg, WithTransport(&testTransport{}))
	if !errors.As(err, &dsnErr) {
		t.Fatalf("New with transport error = %v, want *InvalidDsnError", err)
	}
}

func TestNew_DefaultHTTPTransport(t *testing.T) {
	srv := newCollectorServer(t, http.StatusOK)
	cfg := validConfig()
	cfg.DSN = srv.dsn()

	tracker, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer tracker.Close()

	id := tracker.CaptureMessage(context.Background(), "over the wire")
	if id == "" {
		t.Fatal("CaptureMessage returned empty id")
	}
	if got := srv.lastBody(t)["event_id"]; got != id {
		t.Errorf("event_id on the wire = %v, want %q", got, id)
	}
}

func TestTracker_CaptureException(t *testing.T) {
	tracker, transport := newTestTracker(t)
	tracker.SetUser(User{ID: "42"})
	tracker.SetTag("feature", "checkout")
	tracker.SetExtra("cart_items", 3)
	tracker.AddBreadcrumb(Breadcrumb{Message: "clicked pay"})

	id := tracker.CaptureException(context.Background(), pkgerrors.New("card declined"), WithTag("provider", "acme"))

	events := transport.getEvents()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	e := events[0]
	if id == "" || e.EventID != id {
		t.Errorf("returned id %q, event id %q", id, e.EventID)
	}
	if e.Level != LevelError {
		t.Errorf("Level = %q, want error", e.Level)
	}
	if e.User == nil || e.User.ID != "42" {
		t.Errorf("User = %+v", e.User)
	}
	if e.Tags["feature"] != "checkout" || e.Tags["provider"] != "acme" {
		t.Errorf("Tags = %v", e.Tags)
	}
	if e.Extra["cart_items"] != 3 {
		t.Errorf("Extra = %v", e.Extra)
	}
	if len(e.Breadcrumbs) != 1 {
		t.Errorf("Breadcrumbs = %v", e.Breadcrumbs)
	}
	if len(e.Fingerprint) != 1 || e.Fingerprint[0] == "" {
		t.Errorf("Fingerprint = %v, want one computed hash", e.Fingerprint)
	}
	if _, ok := e.Contexts["runtime"]; !ok {
		t.Error("runtime context missing")
	}
}

func TestTracker_CaptureException_NilError(t *testing.T) {
	tracker, transport := newTestTracker(t)

	if id := tracker.CaptureException(context.Background(), nil); id != "" {
		t.Errorf("CaptureException(nil) = %q, want empty", id)
	}
	if len(transport.getEvents()) != 0 {
		t.Error("nil error should not send")
	}
}

func TestTracker_CaptureMessage(t *testing.T) {
	tracker, transport := newTestTracker(t)

	tracker.CaptureMessage(context.Background(), "disk almost full", WithLevel(LevelWarning), WithLoggerName("ops"))

	e := transport.getEvents()[0]
	if e.Message != "disk almost full" || e.Level != LevelWarning || e.Logger != "ops" {
		t.Errorf("event = %q/%q/%q", e.Message, e.Level, e.Logger)
	}
	if e.Exception != nil {
		t.Error("message event should not have an exception")
	}
}

func TestTracker_CaptureMessage_DefaultsToInfo(t *testing.T) {
	tracker, transport := newTestTracker(t)

	tracker.CaptureMessage(context.Background(), "hello")

	if lvl := transport.getEvents()[0].Level; lvl != LevelInfo {
		t.Errorf("Level = %q, want info", lvl)
	}
}

func TestTracker_FieldsLandInExtra(t *testing.T) {
	tracker, transport := newTestTracker(t)

	tracker.CaptureException(context.Background(), errors.New("payment failed"),
		WithFields(map[string]any{"payment_stage": "processing"}))

	if got := transport.getEvents()[0].Extra["payment_stage"]; got != "processing" {
		t.Errorf("extra.payment_stage = %v, want processing", got)
	}
}

func TestTracker_Sampling(t *testing.T) {
	cfg := validConfig()
	cfg.SampleRate = 0.5
	transport := &testTransport{}
	metrics := NewMetrics()
	tracker, err := New(cfg, WithTransport(transport), WithMetrics(metrics), WithSampler(func() float64 { return 0.9 }))
	if err != nil {
		t.Fatal(err)
	}

	id := tracker.CaptureMessage(context.Background(), "dropped")

	if id == "" {
		t.Error("a sampled-out event still returns its id")
	}
	if len(transport.getEvents()) != 0 {
		t.Error("sampled-out event was sent")
	}
	if got := counterValue(t, metrics, OutcomeSampled); got != 1 {
		t.Errorf("sampled count = %v, want 1", got)
	}
}

func TestTracker_MinLevelFilters(t *testing.T) {
	cfg := validConfig()
	cfg.MinLevel = LevelError
	transport := &testTransport{}
	tracker, err := New(cfg, WithTransport(transport))
	if err != nil {
		t.Fatal(err)
	}

	tracker.CaptureMessage(context.Background(), "info message")
	tracker.CaptureMessage(context.Background(), "bad thing", WithLevel(LevelError))

	events := transport.getEvents()
	if len(events) != 1 || events[0].Message != "bad thing" {
		t.Errorf("events = %+v, want only the error", events)
	}
}

func TestTracker_RateLimit(t *testing.T) {
	metrics := NewMetrics()
	tracker, transport := newTestTracker(t, WithRateLimit(rate.Every(time.Hour), 2), WithMetrics(metrics))

	for i := 0; i < 5; i++ {
		if id := tracker.CaptureMessage(context.Background(), "burst"); id == "" {
			t.Error("rate-limited capture should still return an id")
		}
	}

	if n := len(transport.getEvents()); n != 2 {
		t.Errorf("sent %d events, want 2", n)
	}
	if got := counterValue(t, metrics, OutcomeRateLimited); got != 3 {
		t.Errorf("rate_limited count = %v, want 3", got)
	}
}

func TestTracker_DeliveryFailureIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	metrics := NewMetrics()
	tracker, transport := newTestTracker(t, WithLogger(zerolog.New(&buf)), WithMetrics(metrics))
	transport.sendErr = &TransportError{Op: "status", StatusCode: 503, Body: "down", Err: ErrNonSuccessStatus}

	id := tracker.CaptureException(context.Background(), errors.New("boom"))

	if id != "" {
		t.Errorf("failed delivery returned %q, want empty", id)
	}
	if !strings.Contains(buf.String(), "failed to send event") {
		t.Errorf("failure not logged: %q", buf.String())
	}
	if got := counterValue(t, metrics, OutcomeFailed); got != 1 {
		t.Errorf("failed count = %v, want 1", got)
	}
}

func TestTracker_RequestFromContext(t *testing.T) {
	tracker, transport := newTestTracker(t)
	ctx := ContextWithRequest(context.Background(), Request{Method: "GET", URL: "/orders"})

	tracker.CaptureException(ctx, errors.New("boom"))
	tracker.CaptureException(ctx, errors.New("boom"), WithRequest(Request{Method: "POST", URL: "/explicit"}))

	events := transport.getEvents()
	if events[0].Request == nil || events[0].Request.URL != "/orders" {
		t.Errorf("Request = %+v, want context request", events[0].Request)
	}
	if events[1].Request.URL != "/explicit" {
		t.Errorf("Request = %+v, want explicit request", events[1].Request)
	}
}

func TestTracker_SendContextHasDeadline(t *testing.T) {
	tracker, transport := newTestTracker(t)

	tracker.CaptureMessage(context.Background(), "m")

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if _, ok := transport.ctxs[0].Deadline(); !ok {
		t.Error("send context has no deadline")
	}
}

func TestTracker_Scrubbing(t *testing.T) {
	tracker, transport := newTestTracker(t, WithDefaultScrubbing())
	tracker.SetExtra("db_password", "hunter2")

	tracker.CaptureMessage(context.Background(), "user alice@example.com failed")

	e := transport.getEvents()[0]
	if strings.Contains(e.Message, "alice@example.com") {
		t.Errorf("Message leaked: %q", e.Message)
	}
	if e.Extra["db_password"] != "[REDACTED]" {
		t.Errorf("extra.db_password = %v", e.Extra["db_password"])
	}
}

func TestTracker_ExplicitFingerprintKept(t *testing.T) {
	tracker, transport := newTestTracker(t)

	tracker.CaptureMessage(context.Background(), "m", WithFingerprint("checkout", "timeout"))

	fp := transport.getEvents()[0].Fingerprint
	if len(fp) != 2 || fp[0] != "checkout" {
		t.Errorf("Fingerprint = %v", fp)
	}
}

func TestTracker_Close(t *testing.T) {
	metrics := NewMetrics()
	tracker, transport := newTestTracker(t, WithMetrics(metrics))

	if err := tracker.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := tracker.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if tracker.Enabled() {
		t.Error("tracker still enabled after Close")
	}
	if transport.closed != 1 {
		t.Errorf("transport closed %d times, want 1", transport.closed)
	}

	if id := tracker.CaptureMessage(context.Background(), "late"); id != "" {
		t.Errorf("capture after Close = %q, want empty", id)
	}
	if len(transport.getEvents()) != 0 {
		t.Error("capture after Close was sent")
	}
	if got := counterValue(t, metrics, OutcomeDisabled); got != 1 {
		t.Errorf("disabled count = %v, want 1", got)
	}
}

func TestTracker_Flush(t *testing.T) {
	tracker, transport := newTestTracker(t)

	if err := tracker.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if transport.flushed != 1 {
		t.Errorf("flushed = %d, want 1", transport.flushed)
	}
}

func TestTracker_ClearBreadcrumbs(t *testing.T) {
	tracker, transport := newTestTracker(t)
	tracker.AddBreadcrumb(Breadcrumb{Message: "old"})
	tracker.ClearBreadcrumbs()

	tracker.CaptureMessage(context.Background(), "m")

	if n := len(transport.getEvents()[0].Breadcrumbs); n != 0 {
		t.Errorf("Breadcrumbs = %d, want 0", n)
	}
}

func TestTracker_ConcurrentCapture(t *testing.T) {
	tracker, transport := newTestTracker(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.SetTag("worker", "x")
			tracker.CaptureException(context.Background(), errors.New("boom"))
		}()
	}
	wg.Wait()

	if n := len(transport.getEvents()); n != 20 {
		t.Errorf("events = %d, want 20", n)
	}
}

type panicTransport struct{}

func (panicTransport) SendEvent(context.Context, Event) error { panic("transport exploded") }
func (panicTransport) Flush(context.Context) error            { return nil }
func (panicTransport) Close() error                           { return nil }

type panicMarshaler struct{}

func (panicMarshaler) MarshalJSON() ([]byte, error) { panic("boom in marshal") }

func TestTracker_CaptureNeverPanics(t *testing.T) {
	tests := []struct {
		name      string
		transport Transport
		capture   func(*Tracker) string
	}{
		{
			name:      "panicking transport on exception",
			transport: panicTransport{},
			capture: func(tr *Tracker) string {
				return tr.CaptureException(context.Background(), errors.New("boom"))
			},
		},
		{
			name:      "panicking transport on message",
			transport: panicTransport{},
			capture: func(tr *Tracker) string {
				return tr.CaptureMessage(context.Background(), "hello")
			},
		},
		{
			name:      "panicking transport on panic value",
			transport: panicTransport{},
			capture: func(tr *Tracker) string {
				return tr.CapturePanic(context.Background(), "worker died")
			},
		},
		{
			name: "panicking marshaler in extra",
			capture: func(tr *Tracker) string {
				return tr.CaptureMessage(context.Background(), "m", WithExtra("x", panicMarshaler{}))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCollectorServer(t, http.StatusOK)
			cfg := validConfig()
			cfg.DSN = srv.dsn()
			m := NewMetrics()
			var logs bytes.Buffer
			opts := []Option{WithMetrics(m), WithLogger(zerolog.New(&logs))}
			if tt.transport != nil {
				opts = append(opts, WithTransport(tt.transport))
			}
			tracker, err := New(cfg, opts...)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			defer tracker.Close()

			var id string
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("capture panicked into the caller: %v", r)
					}
				}()
				id = tt.capture(tracker)
			}()

			if id != "" {
				t.Errorf("id = %q, want empty for a failed capture", id)
			}
			if got := counterValue(t, m, OutcomeFailed); got != 1 {
				t.Errorf("failed outcomes = %v, want 1", got)
			}
			if got := counterValue(t, m, OutcomeSent); got != 0 {
				t.Errorf("sent outcomes = %v, want 0", got)
			}
		})
	}
}

func TestTracker_ContainedPanicIsLogged(t *testing.T) {
	var logs bytes.Buffer
	cfg := validConfig()
	tracker, err := New(cfg, WithTransport(panicTransport{}), WithLogger(zerolog.New(&logs)))
	if err != nil {
		t.Fatal(err)
	}
	defer tracker.Close()

	tracker.CaptureMessage(context.Background(), "hello")

	if !strings.Contains(logs.String(), "capture panicked") || !strings.Contains(logs.String(), "transport exploded") {
		t.Errorf("log output = %q", logs.String())
	}
}

func TestTracker_CaptureException_TypedNilError(t *testing.T) {
	tracker, transport := newTestTracker(t)
	var typedNil *validationError

	var id string
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("capture panicked into the caller: %v", r)
			}
		}()
		id = tracker.CaptureException(context.Background(), typedNil)
	}()

	events := transport.getEvents()
	if id == "" || len(events) != 1 {
		t.Fatalf("id = %q, events = %d; want one delivered event", id, len(events))
	}
	values := events[0].Exception.Values
	if got := values[len(values)-1].Value; got != "<nil>" {
		t.Errorf("exception value = %q, want <nil>", got)
	}
}

func TestTracker_CaptureMessage_NormalizesLevel(t *testing.T) {
	cfg := validConfig()
	cfg.MinLevel = LevelError
	transport := &testTransport{}
	tracker, err := New(cfg, WithTransport(transport))
	if err != nil {
		t.Fatal(err)
	}
	defer tracker.Close()

	tracker.CaptureMessage(context.Background(), "db down", WithLevel("critical"))
	tracker.CaptureMessage(context.Background(), "odd level", WithLevel("bogus"))

	events := transport.getEvents()
	if len(events) != 1 {
		t.Fatalf("delivered %d events, want 1 (bogus falls back to info and is filtered)", len(events))
	}
	if events[0].Level != LevelFatal {
		t.Errorf("Level = %q, want fatal", events[0].Level)
	}
}

func TestNew_DebugWithoutDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	var logs bytes.Buffer

	tracker, err := New(cfg, WithLogger(zerolog.New(&logs)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer tracker.Close()

	if _, ok := tracker.transport.(debugTransport); !ok {
		t.Fatalf("transport = %T, want debugTransport", tracker.transport)
	}

	id := tracker.CaptureException(context.Background(), errors.New("printed locally"), WithTag("flow", "checkout"))
	if id == "" {
		t.Fatal("CaptureException returned empty id")
	}
	out := logs.String()
	for _, want := range []string{id, "printed locally", "checkout"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output %q missing %q", out, want)
		}
	}
}

func TestNew_DebugKeepsDSNValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	cfg.DSN = "not-a-url"

	_, err := New(cfg)
	var dsnErr *InvalidDsnError
	if !errors.As(err, &dsnErr) {
		t.Fatalf("New error = %v, want *InvalidDsnError", err)
	}

	cfg.DSN = "https://public@collector.example.com/42"
	tracker, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer tracker.Close()
	if _, ok := tracker.transport.(*HTTPTransport); !ok {
		t.Errorf("transport = %T, want *HTTPTransport when a DSN is set", tracker.transport)
	}
}

func TestNew_NoDSNWithoutDebug(t *testing.T) {
	_, err := New(DefaultConfig())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "dsn" {
		t.Fatalf("New error = %v, want *ConfigError for dsn", err)
	}
}
