package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/field"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
)

type memorySink struct {
	artifacts map[string]core.ExportArtifact
	err       error
}

func (s *memorySink) Put(artifact core.ExportArtifact) error {
	if s.err != nil {
		return s.err
	}
	if s.artifacts == nil {
		s.artifacts = map[string]core.ExportArtifact{}
	}
	s.artifacts[artifact.SessionID] = artifact
	return nil
}

type failingVectorStore struct{ err error }

func (s *failingVectorStore) Upsert(ctx context.Context, docs []core.Document) ([]string, error) {
	return nil, s.err
}
func (s *failingVectorStore) Query(ctx context.Context, query string, topK int) ([]core.RetrievalResult, error) {
	return nil, s.err
}
func (s *failingVectorStore) Delete(ctx context.Context, id string) (bool, error) {
	return false, s.err
}
func (s *failingVectorStore) Clear(ctx context.Context) (bool, error) { return false, s.err }

type fixedVectorStore struct{ results []core.RetrievalResult }

func (s *fixedVectorStore) Upsert(ctx context.Context, docs []core.Document) ([]string, error) {
	return nil, nil
}
func (s *fixedVectorStore) Query(ctx context.Context, query string, topK int) ([]core.RetrievalResult, error) {
	if topK < len(s.results) {
		return s.results[:topK], nil
	}
	return s.results, nil
}
func (s *fixedVectorStore) Delete(ctx context.Context, id string) (bool, error) { return false, nil }
func (s *fixedVectorStore) Clear(ctx context.Context) (bool, error)             { return false, nil }

func newInvocation(t *testing.T) *Invocation {
	t.Helper()
	return &Invocation{
		State:  core.NewConversationState("sess-1", "user-1", 10),
		Fields: field.Default(),
	}
}

func TestReadToolReportsUncollectedFields(t *testing.T) {
	inv := newInvocation(t)
	inv.State.MergeFields(map[string]any{"employee_name": "Ada Lovelace"})

	result := NewReadTool().Call(context.Background(), inv, map[string]any{})

	assert.Contains(t, result.Content, "employee_name: Ada Lovelace")
	assert.Contains(t, result.Content, "employee_id: not yet collected")
	assert.Nil(t, result.Patch)
}

func TestReadToolIsIdempotent(t *testing.T) {
	inv := newInvocation(t)
	inv.State.MergeFields(map[string]any{"starter_kit": "mouse"})
	before := inv.State.Clone()

	NewReadTool().Call(context.Background(), inv, map[string]any{
		"field_names": []any{"starter_kit"},
	})

	assert.Equal(t, before.Fields, inv.State.Fields)
	assert.Equal(t, before.Summary, inv.State.Summary)
}

func TestReadToolRejectsUnknownFieldNames(t *testing.T) {
	inv := newInvocation(t)

	result := NewReadTool().Call(context.Background(), inv, map[string]any{
		"field_names": []any{"favorite_color"},
	})

	assert.Contains(t, result.Content, "Invalid field names: favorite_color")
	assert.Contains(t, result.Content, "employee_name")
	assert.Nil(t, result.Patch)
}

func TestWriteToolRejectsEmptyName(t *testing.T) {
	inv := newInvocation(t)

	result := NewWriteTool().Call(context.Background(), inv, map[string]any{
		"field_name": "employee_name",
		"value":      "",
	})

	assert.Nil(t, result.Patch)
	assert.Contains(t, result.Content, "employee_name")
	_, collected := inv.State.Field("employee_name")
	assert.False(t, collected)
}

func TestWriteToolNormalizesEnum(t *testing.T) {
	inv := newInvocation(t)

	result := NewWriteTool().Call(context.Background(), inv, map[string]any{
		"field_name": "starter_kit",
		"value":      "KEYBOARD",
	})

	require.NotNil(t, result.Patch)
	assert.Equal(t, "keyboard", result.Patch["starter_kit"])
	assert.Contains(t, result.Content, "Data recorded")
}

func TestWriteToolValidationIsDeterministic(t *testing.T) {
	inv := newInvocation(t)
	args := map[string]any{"field_name": "starter_kit", "value": "toaster"}

	first := NewWriteTool().Call(context.Background(), inv, args)
	second := NewWriteTool().Call(context.Background(), inv, args)

	assert.Equal(t, first.Content, second.Content)
	assert.Nil(t, first.Patch)
	assert.Nil(t, second.Patch)
}

func TestSearchToolFormatsResults(t *testing.T) {
	long := strings.Repeat("a", 350)
	inv := newInvocation(t)
	inv.Vectors = &fixedVectorStore{results: []core.RetrievalResult{
		{
			Document: core.Document{
				ID:       "d1",
				Content:  "Remote work requires manager approval.",
				Metadata: core.DocumentMetadata{Source: "handbook.md"},
			},
			Score: 0.95,
		},
		{
			Document: core.Document{
				ID:       "d2",
				Content:  long,
				Metadata: core.DocumentMetadata{Source: "policies.md"},
			},
			Score: 0.75,
		},
	}}

	result := NewSearchTool(3).Call(context.Background(), inv, map[string]any{
		"query": "remote work",
	})

	assert.Contains(t, result.Content, "[Result 1] (Relevance: 95.00%)")
	assert.Contains(t, result.Content, "Source: handbook.md")
	assert.Contains(t, result.Content, "[Result 2] (Relevance: 75.00%)")
	assert.Contains(t, result.Content, strings.Repeat("a", 300)+"...")
	assert.NotContains(t, result.Content, strings.Repeat("a", 301))
	assert.Nil(t, result.Patch)
}

func TestSearchToolNoResults(t *testing.T) {
	inv := newInvocation(t)
	inv.Vectors = &fixedVectorStore{}

	result := NewSearchTool(3).Call(context.Background(), inv, map[string]any{
		"query": "holidays",
	})

	assert.Contains(t, result.Content, "No relevant documents found")
}

func TestSearchToolBackendErrorBecomesContent(t *testing.T) {
	inv := newInvocation(t)
	inv.Vectors = &failingVectorStore{err: errors.New("connection refused")}

	result := NewSearchTool(3).Call(context.Background(), inv, map[string]any{
		"query": "holidays",
	})

	assert.Contains(t, result.Content, "Error searching knowledge base")
	assert.Contains(t, result.Content, "connection refused")
	assert.Nil(t, result.Patch)
}

func TestExportToolSucceedsWhenComplete(t *testing.T) {
	sink := &memorySink{}
	inv := newInvocation(t)
	inv.Exports = sink
	inv.Model = model.NewMockModel("test", model.MockTurn{
		Text: "- Ada Lovelace joined\n- Picked a keyboard",
	})
	inv.State.MergeFields(map[string]any{
		"employee_name": "Ada Lovelace",
		"employee_id":   "EMP-001",
		"starter_kit":   "keyboard",
	})

	result := NewExportTool().Call(context.Background(), inv, map[string]any{})

	assert.Contains(t, result.Content, "exported successfully")
	require.NotNil(t, result.Patch)
	assert.Equal(t, "- Ada Lovelace joined\n- Picked a keyboard", result.Patch["summary"])

	artifact, ok := sink.artifacts["sess-1"]
	require.True(t, ok)
	assert.Equal(t, "user-1", artifact.OwnerID)
	assert.Equal(t, "Ada Lovelace", artifact.Fields["employee_name"])
	assert.NotZero(t, artifact.CreatedAt)
}

func TestExportToolListsMissingFields(t *testing.T) {
	sink := &memorySink{}
	inv := newInvocation(t)
	inv.Exports = sink
	inv.State.MergeFields(map[string]any{
		"employee_name": "Ada Lovelace",
		"starter_kit":   "keyboard",
	})

	result := NewExportTool().Call(context.Background(), inv, map[string]any{})

	assert.Equal(t, "missing: employee_id", result.Content)
	assert.Nil(t, result.Patch)
	assert.Empty(t, sink.artifacts)
}

func TestExportToolDegradesToPlaceholderSummary(t *testing.T) {
	sink := &memorySink{}
	inv := newInvocation(t)
	inv.Exports = sink
	inv.Model = model.NewMockModel("test", model.MockTurn{Err: errors.New("provider down")})
	inv.State.MergeFields(map[string]any{
		"employee_name": "Ada Lovelace",
		"employee_id":   "EMP-001",
		"starter_kit":   "keyboard",
	})

	result := NewExportTool().Call(context.Background(), inv, map[string]any{})

	assert.Contains(t, result.Content, "exported successfully")
	require.NotNil(t, result.Patch)
	assert.Equal(t, placeholderSummary, result.Patch["summary"])
	assert.Equal(t, placeholderSummary, sink.artifacts["sess-1"].Summary)
}

func TestExportToolOverwritesOnReExport(t *testing.T) {
	sink := &memorySink{}
	inv := newInvocation(t)
	inv.Exports = sink
	inv.State.MergeFields(map[string]any{
		"employee_name": "Ada Lovelace",
		"employee_id":   "EMP-001",
		"starter_kit":   "keyboard",
	})

	NewExportTool().Call(context.Background(), inv, map[string]any{})
	inv.State.MergeFields(map[string]any{"starter_kit": "mouse"})
	NewExportTool().Call(context.Background(), inv, map[string]any{})

	require.Len(t, sink.artifacts, 1)
	assert.Equal(t, "mouse", sink.artifacts["sess-1"].Fields["starter_kit"])
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry(NewReadTool(), NewWriteTool())
	inv := newInvocation(t)

	result := reg.Dispatch(context.Background(), inv, core.ToolCall{
		ID:   "c1",
		Name: "teleport",
	})

	assert.Equal(t, "c1", result.CallID)
	assert.Contains(t, result.Content, "Unknown tool 'teleport'")
	assert.Contains(t, result.Content, "read")
	assert.Nil(t, result.Patch)
}

func TestRegistryDispatchValidatesArguments(t *testing.T) {
	reg := NewRegistry(NewWriteTool())
	inv := newInvocation(t)

	result := reg.Dispatch(context.Background(), inv, core.ToolCall{
		ID:        "c2",
		Name:      "write",
		Arguments: map[string]any{"value": "Ada"},
	})

	assert.Contains(t, result.Content, "Invalid arguments for tool 'write'")
	assert.Nil(t, result.Patch)
	_, collected := inv.State.Field("employee_name")
	assert.False(t, collected)
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	reg := NewRegistry(NewReadTool(), NewWriteTool(), NewSearchTool(3), NewExportTool())

	defs := reg.Definitions()
	require.Len(t, defs, 4)

	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"read", "write", "search", "export"}, names)

	for _, d := range defs {
		assert.NotEmpty(t, d.Description, fmt.Sprintf("tool %s has no description", d.Name))
		assert.Equal(t, "object", d.Parameters["type"])
	}
}

var (
	_ Tool = (*ReadTool)(nil)
	_ Tool = (*WriteTool)(nil)
	_ Tool = (*SearchTool)(nil)
	_ Tool = (*ExportTool)(nil)
)
