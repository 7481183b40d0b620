// hooks.go implements agents.RunHooks. The hooks never capture events; they
// record enrichment for the runner and breadcrumbs for the timeline.

package agentssdk

import (
	"context"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// HookAdapter observes a run and delegates every call to the wrapped hooks.
type HookAdapter struct {
	store    EnrichmentStore
	capturer xrayradar.Capturer
	inner    agents.RunHooks
}

// NewHookAdapter wraps inner, which may be nil. Only inner's errors are
// returned. A nil capturer disables breadcrumbs.
func NewHookAdapter(store EnrichmentStore, c xrayradar.Capturer, inner agents.RunHooks) *HookAdapter {
	return &HookAdapter{store: store, capturer: c, inner: inner}
}

var _ agents.RunHooks = (*HookAdapter)(nil)

func (h *HookAdapter) OnAgentStart(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent) error {
	if agent != nil {
		h.update(ctx, func(e *Enrichment) {
			e.AgentName = agent.Name()
		})
	}
	if h.inner != nil {
		return h.inner.OnAgentStart(ctx, runCtx, agent)
	}
	return nil
}

func (h *HookAdapter) OnAgentEnd(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent, result agents.RunResult) error {
	if h.inner != nil {
		return h.inner.OnAgentEnd(ctx, runCtx, agent, result)
	}
	return nil
}

func (h *HookAdapter) OnHandoff(ctx context.Context, runCtx *agents.RunContext, from *agents.Agent, to *agents.Agent) error {
	h.breadcrumb(handoffBreadcrumb(from, to))
	if to != nil {
		h.update(ctx, func(e *Enrichment) {
			e.AgentName = to.Name()
		})
	}
	if h.inner != nil {
		return h.inner.OnHandoff(ctx, runCtx, from, to)
	}
	return nil
}

func (h *HookAdapter) OnToolStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) error {
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = categoryTool
		e.ToolName = tool.Name
		e.ToolCallID = call.ID
	})
	h.breadcrumb(toolStartBreadcrumb(agent, tool, call))
	if h.inner != nil {
		return h.inner.OnToolStart(ctx, runCtx, agent, tool, call)
	}
	return nil
}

func (h *HookAdapter) OnToolEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, output string) error {
	h.breadcrumb(toolEndBreadcrumb(agent, tool, output))
	if h.inner != nil {
		return h.inner.OnToolEnd(ctx, runCtx, agent, tool, output)
	}
	return nil
}

func (h *HookAdapter) OnLLMStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, req llmsdk.Request) error {
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = categoryLLM
		e.Model = req.Model
		e.ToolName = ""
		e.ToolCallID = ""
	})
	h.breadcrumb(llmRequestBreadcrumb(agent, req))
	if h.inner != nil {
		return h.inner.OnLLMStart(ctx, runCtx, agent, req)
	}
	return nil
}

func (h *HookAdapter) OnLLMEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, resp llmsdk.Response) error {
	h.breadcrumb(llmResponseBreadcrumb(agent, resp))
	if h.inner != nil {
		return h.inner.OnLLMEnd(ctx, runCtx, agent, resp)
	}
	return nil
}

func (h *HookAdapter) update(ctx context.Context, fn func(e *Enrichment)) {
	if runID, ok := runIDFromContext(ctx); ok {
		h.store.Update(runID, fn)
	}
}

func (h *HookAdapter) breadcrumb(b xrayradar.Breadcrumb) {
	if h.capturer != nil {
		h.capturer.AddBreadcrumb(b)
	}
}
