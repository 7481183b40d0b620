// breadcrumbs.go summarizes LLM and tool activity as breadcrumbs. Only
// metadata is recorded: prompts, message text, tool arguments and tool
// output never leave the process.

package agentssdk

import (
	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

const (
	categoryLLM     = "llm"
	categoryTool    = "tool"
	categoryHandoff = "handoff"

	// maxMessagesSummarized bounds the per-request message summary.
	maxMessagesSummarized = 10
)

func llmRequestBreadcrumb(agent *agents.Agent, req llmsdk.Request) xrayradar.Breadcrumb {
	data := map[string]any{
		"model":         req.Model,
		"provider":      string(req.Provider),
		"message_count": len(req.Messages),
		"tool_count":    len(req.Tools),
	}
	if len(req.Tools) > 0 {
		names := make([]string, len(req.Tools))
		for i, tool := range req.Tools {
			names[i] = tool.Name
		}
		data["tool_names"] = names
	}

	start := max(len(req.Messages)-maxMessagesSummarized, 0)
	messages := make([]map[string]any, 0, len(req.Messages)-start)
	for _, msg := range req.Messages[start:] {
		messages = append(messages, messageSummary(msg))
	}
	data["messages"] = messages

	return xrayradar.Breadcrumb{
		Category: categoryLLM,
		Message:  "LLM request to " + req.Model + agentSuffix(agent),
		Level:    xrayradar.LevelInfo,
		Data:     data,
	}
}

func messageSummary(msg llmsdk.Message) map[string]any {
	summary := map[string]any{
		"role":  string(msg.Role),
		"parts": len(msg.Parts),
	}
	length := 0
	for _, part := range msg.Parts {
		length += len(part.Text)
		if part.ImageData != nil {
			summary["has_image"] = true
		}
		if part.ToolCall != nil {
			summary["has_tool_call"] = true
		}
		if part.ToolResult != nil {
			summary["has_tool_result"] = true
		}
	}
	summary["content_length"] = length
	return summary
}

func llmResponseBreadcrumb(agent *agents.Agent, resp llmsdk.Response) xrayradar.Breadcrumb {
	data := map[string]any{
		"response_id":       resp.ID,
		"finish_reason":     string(resp.FinishReason),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}
	if len(resp.ToolCalls) > 0 {
		names := make([]string, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			names[i] = tc.Name
		}
		data["tool_calls"] = names
	}
	return xrayradar.Breadcrumb{
		Category: categoryLLM,
		Message:  "LLM response" + agentSuffix(agent),
		Level:    xrayradar.LevelInfo,
		Data:     data,
	}
}

func toolStartBreadcrumb(agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) xrayradar.Breadcrumb {
	return xrayradar.Breadcrumb{
		Category: categoryTool,
		Message:  "Tool " + tool.Name + " started" + agentSuffix(agent),
		Level:    xrayradar.LevelInfo,
		Data: map[string]any{
			"tool":         tool.Name,
			"tool_call_id": call.ID,
		},
	}
}

func toolEndBreadcrumb(agent *agents.Agent, tool agents.Tool, output string) xrayradar.Breadcrumb {
	return xrayradar.Breadcrumb{
		Category: categoryTool,
		Message:  "Tool " + tool.Name + " finished" + agentSuffix(agent),
		Level:    xrayradar.LevelInfo,
		Data: map[string]any{
			"tool":          tool.Name,
			"output_length": len(output),
		},
	}
}

func handoffBreadcrumb(from, to *agents.Agent) xrayradar.Breadcrumb {
	return xrayradar.Breadcrumb{
		Category: categoryHandoff,
		Message:  "Handoff " + agentName(from) + " -> " + agentName(to),
		Level:    xrayradar.LevelInfo,
	}
}

func agentName(agent *agents.Agent) string {
	if agent == nil {
		return "?"
	}
	return agent.Name()
}

func agentSuffix(agent *agents.Agent) string {
	if agent == nil {
		return ""
	}
	return " (" + agent.Name() + ")"
}
