package tool

import (
	"context"
	"fmt"
	"strings"
)

// ReadTool reports the current values of collected fields. It never mutates
// state and never fails: unknown field names are reported in content together
// with the valid names.
type ReadTool struct{}

// NewReadTool creates the read tool.
func NewReadTool() *ReadTool { return &ReadTool{} }

// Name returns the tool identifier.
func (t *ReadTool) Name() string { return "read" }

// Description returns the tool description shown to the model.
func (t *ReadTool) Description() string {
	return "Read the current values of collected onboarding fields. " +
		"Pass field_names to read specific fields, or omit it to read all fields."
}

// Parameters returns the JSON schema for tool arguments.
func (t *ReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field_names": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Field names to read. Omit to read all fields.",
			},
		},
	}
}

// Call formats the requested fields' current values. Fields without a value
// yet are marked "not yet collected".
func (t *ReadTool) Call(ctx context.Context, inv *Invocation, args map[string]any) Result {
	requested := inv.Fields.Names()
	if raw, ok := args["field_names"].([]any); ok && len(raw) > 0 {
		requested = make([]string, 0, len(raw))
		for _, v := range raw {
			name, _ := v.(string)
			requested = append(requested, name)
		}
	}

	var invalid []string
	for _, name := range requested {
		if _, ok := inv.Fields.Describe(name); !ok {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		inv.Log().Warn("tool.read.invalid_fields", "fields", strings.Join(invalid, ","))
		return Result{Content: fmt.Sprintf(
			"Invalid field names: %s. Valid fields: %s",
			strings.Join(invalid, ", "), strings.Join(inv.Fields.Names(), ", "),
		)}
	}

	var b strings.Builder
	b.WriteString("Collected onboarding data:\n")
	for _, name := range requested {
		value, ok := inv.State.Field(name)
		if !ok || value == nil {
			fmt.Fprintf(&b, "- %s: not yet collected\n", name)
			continue
		}
		fmt.Fprintf(&b, "- %s: %v\n", name, value)
	}

	inv.Log().Debug("tool.read", "fields", len(requested))
	return Result{Content: b.String()}
}
