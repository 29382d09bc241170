package core

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult captures the outcome of a dispatched tool call. Content is
// always present: success and failure are both expressed as content, never as
// errors crossing the tool boundary. Patch optionally carries validated field
// values to merge into conversation state.
type ToolResult struct {
	CallID  string         `json:"call_id"`
	Content string         `json:"content"`
	Patch   map[string]any `json:"patch,omitempty"`
}
