package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Message represents a single conversation turn. Concrete message types
// implement the unexported isMessage marker enabling a closed set.
type Message interface{ isMessage() }

// HumanMessage is a turn authored by the end user.
type HumanMessage struct {
	Text string `json:"text"`
}

func (HumanMessage) isMessage() {}

// AssistantMessage is a turn authored by the model. It carries either a final
// text answer, a list of requested tool calls, or both (reasoning preamble
// followed by calls).
type AssistantMessage struct {
	Text      string     `json:"text,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

func (AssistantMessage) isMessage() {}

// ToolMessage records the observed outcome of a previously requested tool
// call. Content is always present; tool failures are expressed as content
// rather than as errors.
type ToolMessage struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
}

func (ToolMessage) isMessage() {}

// SystemMessage carries standing instructions injected ahead of the
// conversation.
type SystemMessage struct {
	Text string `json:"text"`
}

func (SystemMessage) isMessage() {}

// NewID generates a unique identifier for tool calls, documents and runs.
func NewID() string { return uuid.NewString() }

// messageEnvelope is the type-tagged wire form used to round trip the Message
// variant through JSON (durable checkpoint stores depend on this).
type messageEnvelope struct {
	Type      string     `json:"type"`
	Text      string     `json:"text,omitempty"`
	CallID    string     `json:"call_id,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

func encodeMessage(m Message) (messageEnvelope, error) {
	switch v := m.(type) {
	case HumanMessage:
		return messageEnvelope{Type: "human", Text: v.Text}, nil
	case AssistantMessage:
		return messageEnvelope{Type: "assistant", Text: v.Text, ToolCalls: v.ToolCalls}, nil
	case ToolMessage:
		return messageEnvelope{Type: "tool", CallID: v.CallID, Content: v.Content}, nil
	case SystemMessage:
		return messageEnvelope{Type: "system", Text: v.Text}, nil
	default:
		return messageEnvelope{}, fmt.Errorf("unknown message variant %T", m)
	}
}

func decodeMessage(env messageEnvelope) (Message, error) {
	switch env.Type {
	case "human":
		return HumanMessage{Text: env.Text}, nil
	case "assistant":
		return AssistantMessage{Text: env.Text, ToolCalls: env.ToolCalls}, nil
	case "tool":
		return ToolMessage{CallID: env.CallID, Content: env.Content}, nil
	case "system":
		return SystemMessage{Text: env.Text}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// MarshalMessages serializes an ordered message sequence to JSON preserving
// the variant tags.
func MarshalMessages(msgs []Message) ([]byte, error) {
	envs := make([]messageEnvelope, 0, len(msgs))
	for _, m := range msgs {
		env, err := encodeMessage(m)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return json.Marshal(envs)
}

// UnmarshalMessages reconstructs a message sequence produced by
// MarshalMessages.
func UnmarshalMessages(data []byte) ([]Message, error) {
	var envs []messageEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(envs))
	for _, env := range envs {
		m, err := decodeMessage(env)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
