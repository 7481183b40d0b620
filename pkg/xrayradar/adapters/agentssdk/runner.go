// runner.go wraps agents.Runner so failed and panicking runs are reported.
// This is where events are captured; the hooks only enrich them.

package agentssdk

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/strongdm/ai-agents-sdk/pkg/agents"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// FrameworkTag is the value of the "framework" tag on every event.
const FrameworkTag = "ai-agents-sdk"

// panicCapturer is implemented by *xrayradar.Tracker.
type panicCapturer interface {
	CapturePanic(ctx context.Context, recovered any, opts ...xrayradar.CaptureOption) string
}

// Runner wraps an agents.Runner with error and panic capture.
type Runner struct {
	inner       *agents.Runner
	capturer    xrayradar.Capturer
	enrichments EnrichmentStore
	logger      *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger reports captures that produced no event id. Nil disables it.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithEnrichmentStore replaces the in-memory enrichment store.
func WithEnrichmentStore(store EnrichmentStore) Option {
	return func(r *Runner) {
		if store != nil {
			r.enrichments = store
		}
	}
}

// Instrument wraps runner so run errors and panics reach c.
//
//	runner := agentssdk.Instrument(agents.NewRunner(client), tracker)
//	result, err := runner.Run(ctx, agent, input, session, nil)
func Instrument(runner *agents.Runner, c xrayradar.Capturer, opts ...Option) *Runner {
	r := &Runner{
		inner:       runner,
		capturer:    c,
		enrichments: NewEnrichmentStore(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes agent with session, capturing errors and panics. Panics are
// re-raised after capture.
func (r *Runner) Run(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (agents.RunResult, error) {
	ctx, runID := r.begin(ctx, session)
	defer r.enrichments.Delete(runID)
	defer r.recoverRun(ctx, runID)

	result, err := r.inner.Run(ctx, agent, input, session, r.wrapConfig(cfg))
	if err != nil {
		r.captureError(ctx, runID, err)
	}
	return result, err
}

// RunOnce executes a single turn, capturing errors and panics.
func (r *Runner) RunOnce(ctx context.Context, agent *agents.Agent, input string, cfg *agents.RunConfig) (agents.RunResult, error) {
	ctx, runID := r.begin(ctx, nil)
	defer r.enrichments.Delete(runID)
	defer r.recoverRun(ctx, runID)

	result, err := r.inner.RunOnce(ctx, agent, input, r.wrapConfig(cfg))
	if err != nil {
		r.captureError(ctx, runID, err)
	}
	return result, err
}

// RunStream starts a streaming run. Only failures to start are captured;
// errors surfaced while consuming the stream are the caller's to report.
func (r *Runner) RunStream(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (*agents.StreamingRun, error) {
	ctx, runID := r.begin(ctx, session)
	defer r.recoverRun(ctx, runID)

	stream, err := r.inner.RunStream(ctx, agent, input, session, r.wrapConfig(cfg))
	if err != nil {
		r.captureError(ctx, runID, err)
		r.enrichments.Delete(runID)
	}
	return stream, err
}

// Inner returns the wrapped runner.
func (r *Runner) Inner() *agents.Runner {
	return r.inner
}

// begin assigns a run id and, when the session knows its conversation, the
// context id that links captured events to it.
func (r *Runner) begin(ctx context.Context, session any) (context.Context, string) {
	runID := uuid.NewString()
	ctx = withRunID(ctx, runID)
	if id, ok := sessionContextID(ctx, session); ok {
		ctx = xrayradar.WithContextID(ctx, id)
	}
	return ctx, runID
}

func sessionContextID(ctx context.Context, session any) (uint64, bool) {
	provider, ok := session.(xrayradar.ContextIDProvider)
	if !ok {
		return 0, false
	}
	id, err := provider.ContextID(ctx)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (r *Runner) wrapConfig(cfg *agents.RunConfig) *agents.RunConfig {
	var cloned agents.RunConfig
	if cfg != nil {
		cloned = *cfg
	}
	cloned.Hooks = NewHookAdapter(r.enrichments, r.capturer, cloned.Hooks)
	return &cloned
}

func (r *Runner) captureOptions(runID string) []xrayradar.CaptureOption {
	enrichment, _ := r.enrichments.Get(runID)
	opts := []xrayradar.CaptureOption{xrayradar.WithTag("framework", FrameworkTag)}
	return append(opts, enrichment.captureOptions()...)
}

func (r *Runner) captureError(ctx context.Context, runID string, err error) {
	opts := append(r.captureOptions(runID), xrayradar.WithTag("error_class", classifyError(err)))
	if id := r.capturer.CaptureException(ctx, err, opts...); id == "" {
		r.logf("xrayradar: run error was not captured: %v", err)
	}
}

func (r *Runner) recoverRun(ctx context.Context, runID string) {
	rec := recover()
	if rec == nil {
		return
	}
	opts := append(r.captureOptions(runID), xrayradar.WithTag("error_class", "panic"))

	var id string
	if pc, ok := r.capturer.(panicCapturer); ok {
		id = pc.CapturePanic(ctx, rec, opts...)
	} else {
		err, isErr := rec.(error)
		if !isErr {
			err = errors.New(fmt.Sprint(rec))
		}
		opts = append(opts, xrayradar.WithLevel(xrayradar.LevelFatal))
		id = r.capturer.CaptureException(ctx, fmt.Errorf("panic: %w", err), opts...)
	}
	if id == "" {
		r.logf("xrayradar: run panic was not captured: %v", rec)
	}
	panic(rec)
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
