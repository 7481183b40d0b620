// enrichment.go keeps per-run context gathered by hooks so runner-level
// captures can say which agent, tool, or model was active.

package agentssdk

import (
	"context"
	"sync"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// Enrichment is what the hooks learned about a run before it failed.
type Enrichment struct {
	AgentName  string
	Model      string
	ToolName   string
	ToolCallID string
	// Operation is the kind of work in progress: "llm" or "tool".
	Operation string
}

// captureOptions turns the enrichment into event tags and extra.
func (e Enrichment) captureOptions() []xrayradar.CaptureOption {
	var opts []xrayradar.CaptureOption
	if e.AgentName != "" {
		opts = append(opts, xrayradar.WithTag("agent", e.AgentName))
	}
	if e.Operation != "" {
		opts = append(opts, xrayradar.WithTag("operation", e.Operation))
	}
	if e.ToolName != "" {
		opts = append(opts, xrayradar.WithTag("tool", e.ToolName))
	}
	if e.Model != "" {
		opts = append(opts, xrayradar.WithExtra("model", e.Model))
	}
	if e.ToolCallID != "" {
		opts = append(opts, xrayradar.WithExtra("tool_call_id", e.ToolCallID))
	}
	return opts
}

// EnrichmentStore holds enrichment keyed by run id. Implementations must be
// safe for concurrent use.
type EnrichmentStore interface {
	// Update applies fn to the enrichment for runID, creating it if needed.
	// fn runs under the store lock and must not call back into the store.
	Update(runID string, fn func(e *Enrichment))
	// Get returns a copy of the enrichment for runID.
	Get(runID string) (Enrichment, bool)
	Delete(runID string)
}

type memoryStore struct {
	mu   sync.Mutex
	runs map[string]*Enrichment
}

// NewEnrichmentStore returns an in-memory store.
func NewEnrichmentStore() EnrichmentStore {
	return &memoryStore{runs: make(map[string]*Enrichment)}
}

func (s *memoryStore) Update(runID string, fn func(e *Enrichment)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		e = &Enrichment{}
		s.runs[runID] = e
	}
	fn(e)
}

func (s *memoryStore) Get(runID string) (Enrichment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[runID]
	if !ok {
		return Enrichment{}, false
	}
	return *e, true
}

func (s *memoryStore) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

type runIDKey struct{}

func withRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func runIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}
