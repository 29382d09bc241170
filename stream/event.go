// Package stream defines the typed event protocol emitted to clients during
// an agent run and the translator that produces it from the orchestrator's
// internal step sequence. No transport is assumed; callers bridge the event
// channel onto WebSocket, SSE or anything else.
package stream

import "time"

// EventType discriminates client-visible events.
type EventType string

const (
	// EventToken carries an incremental text fragment during generation.
	EventToken EventType = "token"
	// EventToolStart signals a tool call was selected, before execution.
	EventToolStart EventType = "tool_start"
	// EventToolEnd signals a tool's content is available. Failure content is
	// still a tool_end, not an error.
	EventToolEnd EventType = "tool_end"
	// EventComplete terminates a run normally.
	EventComplete EventType = "complete"
	// EventError terminates a run with a fatal error.
	EventError EventType = "error"
)

// Completion reasons carried on complete events.
const (
	// ReasonAnswer marks a run that ended with a final model answer.
	ReasonAnswer = "answer"
	// ReasonGuard marks a run stopped by the iteration guard.
	ReasonGuard = "guard"
)

// Event is one client-visible occurrence in a run. Fields beyond Type and
// RunID are populated per event type.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id"`

	// Content holds the token fragment, the tool result, the final answer or
	// the error message depending on Type.
	Content string `json:"content,omitempty"`

	// Tool and CallID identify the tool call for tool_start / tool_end.
	Tool   string `json:"tool,omitempty"`
	CallID string `json:"call_id,omitempty"`

	// Reason is set on complete events: "answer" or "guard".
	Reason string `json:"reason,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Terminal reports whether the event ends the run.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
