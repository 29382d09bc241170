package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
)

// placeholderSummary replaces the generated summary when the model call fails.
// The export still completes: losing a nicety must not lose validated data.
const placeholderSummary = "Summary generation unavailable"

// ExportTool finalizes the onboarding conversation. It checks that every
// required field has been collected, asks the generation model for a short
// summary of the collected data, writes the artifact to the export sink and
// patches the summary into state. An incomplete record produces a content
// message naming each missing field and writes nothing.
type ExportTool struct{}

// NewExportTool creates the export tool.
func NewExportTool() *ExportTool { return &ExportTool{} }

// Name returns the tool identifier.
func (t *ExportTool) Name() string { return "export" }

// Description returns the tool description shown to the model.
func (t *ExportTool) Description() string {
	return "Export the collected onboarding data once all required fields are present. " +
		"Generates a short summary and writes the final record."
}

// Parameters returns the JSON schema for tool arguments.
func (t *ExportTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"confirmation": map[string]any{
				"type":        "string",
				"description": "Optional confirmation note for the export.",
			},
		},
	}
}

// Call runs the completeness gate, generates the summary and writes the
// artifact. Re-exporting a session overwrites the previous artifact.
func (t *ExportTool) Call(ctx context.Context, inv *Invocation, args map[string]any) Result {
	missing := inv.Fields.Missing(inv.State.Fields)
	if len(missing) > 0 {
		inv.Log().Warn("tool.export.incomplete", "missing", strings.Join(missing, ","))
		return Result{Content: fmt.Sprintf("missing: %s", strings.Join(missing, ", "))}
	}

	summary := t.generateSummary(ctx, inv)

	artifact := core.ExportArtifact{
		SessionID: inv.State.SessionID,
		OwnerID:   inv.State.OwnerID,
		Fields:    collectedFields(inv),
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
	if err := inv.Exports.Put(artifact); err != nil {
		inv.Log().Error("tool.export.sink", "error", err.Error())
		return Result{Content: fmt.Sprintf("Failed to write export: %v", err)}
	}

	inv.Log().Info("tool.export", "session_id", inv.State.SessionID)
	return Result{
		Content: "Onboarding data exported successfully",
		Patch:   map[string]any{"summary": summary},
	}
}

// generateSummary asks the generation model for a 2-3 bullet summary of the
// collected fields. Any failure degrades to a placeholder rather than
// blocking the export.
func (t *ExportTool) generateSummary(ctx context.Context, inv *Invocation) string {
	if inv.Model == nil {
		return placeholderSummary
	}

	var b strings.Builder
	b.WriteString("Summarize this onboarding conversation in 2-3 concise bullet points.\n\n")
	b.WriteString("Employee Information:\n")
	for _, name := range inv.Fields.Names() {
		value, ok := inv.State.Field(name)
		if !ok || value == nil {
			fmt.Fprintf(&b, "- %s: Not specified\n", name)
			continue
		}
		fmt.Fprintf(&b, "- %s: %v\n", name, value)
	}
	b.WriteString("\nFocus on key highlights and any notable requests or concerns.")

	respCh, errCh := inv.Model.Generate(ctx, model.Request{
		Messages: []core.Message{core.HumanMessage{Text: b.String()}},
	})

	var text string
	for r := range respCh {
		if !r.Partial {
			text = r.Text
		}
	}
	if err, ok := <-errCh; ok && err != nil {
		inv.Log().Warn("tool.export.summary_failed", "error", err.Error())
		return placeholderSummary
	}
	if strings.TrimSpace(text) == "" {
		return placeholderSummary
	}
	return text
}

func collectedFields(inv *Invocation) map[string]any {
	fields := make(map[string]any, len(inv.Fields.Names()))
	for _, name := range inv.Fields.Names() {
		if value, ok := inv.State.Field(name); ok {
			fields[name] = value
		}
	}
	return fields
}
