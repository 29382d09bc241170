package genesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablo-lozano-martin/genesis-sub004/config"
	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
	"github.com/pablo-lozano-martin/genesis-sub004/stream"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Model.Provider = config.ProviderMock
	return cfg
}

func TestNewWithDefaults(t *testing.T) {
	agent, err := New(mockConfig())
	require.NoError(t, err)
	defer agent.Close()

	events, err := agent.RunSync(context.Background(), "sess-1", "user-1", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, stream.EventComplete, events[len(events)-1].Type)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := mockConfig()
	cfg.Engine.MaxIterations = -1

	_, err := New(cfg)
	require.Error(t, err)
}

func TestAgentSeedsKnowledgeBase(t *testing.T) {
	scripted := model.NewMockModel("scripted",
		model.MockTurn{ToolCalls: []core.ToolCall{
			{ID: "c1", Name: "search", Arguments: map[string]any{"query": "vacation policy"}},
		}},
		model.MockTurn{Text: "You get 25 days of vacation."},
	)

	agent, err := New(mockConfig(), func(o *Options) { o.Model = scripted })
	require.NoError(t, err)
	defer agent.Close()

	ids, err := agent.AddDocuments(context.Background(), core.Document{
		Content:  "Employees receive 25 days of paid vacation per year.",
		Metadata: core.DocumentMetadata{Source: "handbook.md"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	events, err := agent.RunSync(context.Background(), "sess-1", "user-1", "how much vacation do I get?")
	require.NoError(t, err)

	var toolEnd *stream.Event
	for i := range events {
		if events[i].Type == stream.EventToolEnd {
			toolEnd = &events[i]
		}
	}
	require.NotNil(t, toolEnd)
	assert.Contains(t, toolEnd.Content, "handbook.md")
	assert.Contains(t, toolEnd.Content, "25 days of paid vacation")
}

func TestAgentSQLitePersistence(t *testing.T) {
	dir := t.TempDir()
	cfg := mockConfig()
	cfg.Storage.CheckpointPath = dir + "/checkpoints.db"
	cfg.Export.Dir = dir + "/exports"

	agent, err := New(cfg)
	require.NoError(t, err)

	_, err = agent.RunSync(context.Background(), "sess-1", "user-1", "hello")
	require.NoError(t, err)
	require.NoError(t, agent.Close())

	// Reopening sees the committed conversation.
	agent2, err := New(cfg)
	require.NoError(t, err)
	defer agent2.Close()

	events, err := agent2.RunSync(context.Background(), "sess-1", "user-1", "still there?")
	require.NoError(t, err)
	assert.Equal(t, stream.EventComplete, events[len(events)-1].Type)
}
