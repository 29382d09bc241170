package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the orchestrator.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a model. Partial
// responses carry incremental text only; the final response carries the full
// text and any requested tool calls.
type Response struct {
	Partial      bool            `json:"partial"`
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the orchestrator to drive
// generation. Generate returns a response channel and a terminal error
// channel (size 1); both are closed when the call completes.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockTurn scripts one model turn for MockModel: either a final text answer
// or a list of tool calls (optionally preceded by text).
type MockTurn struct {
	Text      string
	ToolCalls []core.ToolCall
	Err       error
}

// MockModel is a lightweight in-memory Model useful for tests & examples. It
// replays scripted turns in order; once the script is exhausted it echoes the
// last human message. Safe for concurrent use.
type MockModel struct {
	mu    sync.Mutex
	info  Info
	turns []MockTurn
	next  int
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string, turns ...MockTurn) *MockModel {
	return &MockModel{
		info:  Info{Name: name, Provider: "mock", SupportsTools: true},
		turns: turns,
	}
}

// Queue appends scripted turns.
func (m *MockModel) Queue(turns ...MockTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turns...)
}

// Generate implements Model; emits optional streaming rune chunks then the
// final response for the next scripted turn.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	var turn MockTurn
	if m.next < len(m.turns) {
		turn = m.turns[m.next]
		m.next++
	} else {
		turn = MockTurn{Text: fmt.Sprintf("Mock response to: %s", lastHumanText(req.Messages))}
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if turn.Err != nil {
			errCh <- turn.Err
			return
		}
		if req.Stream && turn.Text != "" {
			for _, r := range turn.Text {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}
		finish := "stop"
		if len(turn.ToolCalls) > 0 {
			finish = "tool_calls"
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Text: turn.Text, ToolCalls: turn.ToolCalls, FinishReason: finish}:
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func lastHumanText(msgs []core.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if hm, ok := msgs[i].(core.HumanMessage); ok {
			return hm.Text
		}
	}
	return ""
}
