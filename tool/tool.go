// Package tool implements the capabilities the agent can invoke during a
// conversation: reading and writing collected fields, searching the knowledge
// base and exporting the finished record. Arguments are validated against each
// tool's JSON schema before dispatch.
package tool

import (
	"context"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/field"
	"github.com/pablo-lozano-martin/genesis-sub004/logging"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
)

// Result is what every tool call produces. Tools never return errors: any
// failure (bad field value, unknown field, backend outage) is expressed in
// Content so the model can observe the mistake and correct itself on the next
// reasoning step. Patch, when non-nil, is merged into the conversation state
// by the caller.
type Result struct {
	Content string
	Patch   map[string]any
}

// Invocation carries the conversation snapshot and the collaborators a tool
// may need. The orchestrator builds one per tool call; tools must treat State
// as read-only and express mutations through Result.Patch.
type Invocation struct {
	// State is a snapshot of the conversation at dispatch time.
	State *core.ConversationState
	// CallID correlates the invocation with the model's tool call.
	CallID string

	Fields  *field.Registry
	Vectors core.VectorStore
	Model   model.Model
	Exports core.ExportSink

	Logger logging.Logger
}

// Log returns the invocation logger, falling back to a no-op logger so tools
// never have to nil-check.
func (inv *Invocation) Log() logging.Logger {
	if inv.Logger == nil {
		return logging.NoOpLogger{}
	}
	return inv.Logger
}

// Tool defines a single capability exposed to the generation model.
//
// Implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define a proper JSON schema for parameters
//   - Express every failure through Result.Content, never panic
//   - Be safe for concurrent use across sessions
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description provided to the model
	// to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-validated arguments.
	Call(ctx context.Context, inv *Invocation, args map[string]any) Result
}
