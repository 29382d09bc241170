package tool

import (
	"context"
	"fmt"
)

// WriteTool records a single field value after validating and normalizing it
// through the field registry. On rejection the state stays unchanged and the
// validation message is returned as content so the model can ask the user
// again.
type WriteTool struct{}

// NewWriteTool creates the write tool.
func NewWriteTool() *WriteTool { return &WriteTool{} }

// Name returns the tool identifier.
func (t *WriteTool) Name() string { return "write" }

// Description returns the tool description shown to the model.
func (t *WriteTool) Description() string {
	return "Record a single onboarding field value. The value is validated and " +
		"normalized before being stored; invalid values are rejected with an explanation."
}

// Parameters returns the JSON schema for tool arguments.
func (t *WriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field_name": map[string]any{
				"type":        "string",
				"description": "Name of the field to record.",
			},
			"value": map[string]any{
				"description": "Raw value for the field, normalized on write.",
			},
			"comment": map[string]any{
				"type":        "string",
				"description": "Optional free-text note about the write.",
			},
		},
		"required": []string{"field_name", "value"},
	}
}

// Call validates the value and, on success, returns a patch mapping the field
// to its normalized value.
func (t *WriteTool) Call(ctx context.Context, inv *Invocation, args map[string]any) Result {
	name, _ := args["field_name"].(string)
	raw := args["value"]

	normalized, err := inv.Fields.Validate(name, raw)
	if err != nil {
		inv.Log().Warn("tool.write.rejected", "field", name, "error", err.Error())
		return Result{Content: err.Error()}
	}

	inv.Log().Info("tool.write", "field", name)
	return Result{
		Content: fmt.Sprintf("Data recorded: %s = %v", name, normalized),
		Patch:   map[string]any{name: normalized},
	}
}
