package models

// ToolCall is one invocation of a named function found in a thread's
// history. Arguments are preserved as-is for display.
type ToolCall struct {
	FunctionName string `json:"function_name"`
	CallID       string `json:"call_id"`
	Arguments    string `json:"arguments"`
	Timestamp    string `json:"timestamp"`
	MessageType  string `json:"message_type"`
	MessageID    string `json:"message_id"`
	ThreadID     string `json:"thread_id,omitempty"`
}

// ToolCallStats holds the tool-call counters for a single thread.
// create_lead and send_html_email are tracked individually; every other
// function only feeds the total and the detail list.
type ToolCallStats struct {
	CreateLead     int        `json:"create_lead"`
	SendHTMLEmail  int        `json:"send_html_email"`
	TotalToolCalls int        `json:"total_tool_calls"`
	Detail         []ToolCall `json:"tool_calls_detail"`
}

// HasAny reports whether at least one tool call was found.
func (s ToolCallStats) HasAny() bool {
	return s.TotalToolCalls > 0
}
