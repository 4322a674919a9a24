package history

import (
	"fmt"

	"github.com/xaenox/thread-analytics/internal/models"
)

// Function names tracked with their own counters.
const (
	toolCreateLead    = "create_lead"
	toolSendHTMLEmail = "send_html_email"
)

// AnalyzeToolCalls extracts the deduplicated tool invocations from one
// thread's history. Call ids are tracked for the lifetime of this call
// only, so an id repeated across overlapping history pages counts once
// per thread, never across threads.
func AnalyzeToolCalls(items []models.HistoryItem) models.ToolCallStats {
	stats := models.ToolCallStats{Detail: []models.ToolCall{}}
	seen := make(map[string]struct{})

	for _, item := range items {
		for _, record := range normalizeValues(item.Values) {
			messages, _ := record["messages"].([]any)
			for _, raw := range messages {
				message, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				for _, call := range toolCallsForMessage(message, item.CreatedAt) {
					if call.FunctionName == "" || call.CallID == "" {
						continue
					}
					if _, dup := seen[call.CallID]; dup {
						continue
					}
					seen[call.CallID] = struct{}{}

					stats.TotalToolCalls++
					switch call.FunctionName {
					case toolCreateLead:
						stats.CreateLead++
					case toolSendHTMLEmail:
						stats.SendHTMLEmail++
					}
					stats.Detail = append(stats.Detail, call)
				}
			}
		}
	}
	return stats
}

// toolCallsForMessage reads the two tool-call shapes the API produces.
// additional_kwargs.tool_calls (nested function object) is primary; the
// flat top-level tool_calls list is consulted only when the first shape
// is absent or empty. The two shapes are never merged for one message.
func toolCallsForMessage(message map[string]any, timestamp string) []models.ToolCall {
	msgType, _ := message["type"].(string)
	msgID, _ := message["id"].(string)

	if kwargs, ok := message["additional_kwargs"].(map[string]any); ok {
		if calls, ok := kwargs["tool_calls"].([]any); ok && len(calls) > 0 {
			out := make([]models.ToolCall, 0, len(calls))
			for _, raw := range calls {
				call, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				function, _ := call["function"].(map[string]any)
				name, _ := function["name"].(string)
				id, _ := call["id"].(string)
				out = append(out, models.ToolCall{
					FunctionName: name,
					CallID:       id,
					Arguments:    argumentString(function["arguments"]),
					Timestamp:    timestamp,
					MessageType:  msgType,
					MessageID:    msgID,
				})
			}
			return out
		}
	}

	calls, _ := message["tool_calls"].([]any)
	out := make([]models.ToolCall, 0, len(calls))
	for _, raw := range calls {
		call, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := call["name"].(string)
		id, _ := call["id"].(string)
		out = append(out, models.ToolCall{
			FunctionName: name,
			CallID:       id,
			Arguments:    argumentString(call["args"]),
			Timestamp:    timestamp,
			MessageType:  msgType,
			MessageID:    msgID,
		})
	}
	return out
}

// argumentString preserves tool arguments for display: strings as-is,
// anything else with default formatting.
func argumentString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
