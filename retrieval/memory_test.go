package retrieval

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.VectorStore = (*MemoryStore)(nil)
	_ core.VectorStore = (*SQLiteStore)(nil)
)

// fixedEmbedder returns a preset vector per text, letting tests pin exact
// cosine distances.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (e *fixedEmbedder) Dimension() int { return 2 }

// atDistance builds a unit vector whose cosine distance to (1,0) is d.
func atDistance(d float64) []float32 {
	cos := 1 - d
	sin := math.Sqrt(1 - cos*cos)
	return []float32{float32(cos), float32(sin)}
}

func testDoc(id, content string) core.Document {
	return core.Document{
		ID:      id,
		Content: content,
		Metadata: core.DocumentMetadata{
			Source:        "handbook.md",
			CreatedAt:     time.Now().UTC(),
			ContentLength: len(content),
			DocumentType:  "markdown",
		},
	}
}

func TestQueryScoresAndOrdering(t *testing.T) {
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"near": atDistance(0.1),
		"mid":  atDistance(0.3),
		"far":  atDistance(0.5),
	}}
	store := NewMemoryStore(embedder)
	ctx := context.Background()

	// Upsert far-to-near so ordering cannot come from insertion order.
	_, err := store.Upsert(ctx, []core.Document{
		testDoc("doc-far", "far"),
		testDoc("doc-mid", "mid"),
		testDoc("doc-near", "near"),
	})
	require.NoError(t, err)

	results, err := store.Query(ctx, "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "doc-near", results[0].Document.ID)
	assert.Equal(t, "doc-mid", results[1].Document.ID)
	assert.Equal(t, "doc-far", results[2].Document.ID)
	assert.InDelta(t, 0.95, results[0].Score, 1e-6)
	assert.InDelta(t, 0.85, results[1].Score, 1e-6)
	assert.InDelta(t, 0.75, results[2].Score, 1e-6)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestQueryTieBreaksByDocumentID(t *testing.T) {
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"same-a": atDistance(0.2),
		"same-b": atDistance(0.2),
	}}
	store := NewMemoryStore(embedder)
	ctx := context.Background()

	_, err := store.Upsert(ctx, []core.Document{
		testDoc("doc-b", "same-b"),
		testDoc("doc-a", "same-a"),
	})
	require.NoError(t, err)

	results, err := store.Query(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-a", results[0].Document.ID)
	assert.Equal(t, "doc-b", results[1].Document.ID)
}

func TestQueryRespectsTopK(t *testing.T) {
	store := NewMemoryStore(NewHashEmbedder(256))
	ctx := context.Background()

	_, err := store.Upsert(ctx, []core.Document{
		testDoc("a", "vacation policy details"),
		testDoc("b", "vacation days allowance"),
		testDoc("c", "parking garage rules"),
	})
	require.NoError(t, err)

	results, err := store.Query(ctx, "vacation policy", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document.ID)
}

func TestDeleteAndClear(t *testing.T) {
	store := NewMemoryStore(NewHashEmbedder(64))
	ctx := context.Background()

	ids, err := store.Upsert(ctx, []core.Document{testDoc("", "orbio benefits overview")})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.NotEmpty(t, ids[0])

	ok, err := store.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Upsert(ctx, []core.Document{testDoc("x", "another doc")})
	require.NoError(t, err)
	ok, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	results, err := store.Query(ctx, "another doc", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScoreFromDistance(t *testing.T) {
	assert.InDelta(t, 1.0, ScoreFromDistance(0), 1e-9)
	assert.InDelta(t, 0.95, ScoreFromDistance(0.1), 1e-9)
	assert.InDelta(t, 0.5, ScoreFromDistance(1), 1e-9)
	assert.InDelta(t, 0.0, ScoreFromDistance(2), 1e-9)
	// Out-of-range distances clamp rather than escape [0,1].
	assert.Equal(t, 1.0, ScoreFromDistance(-0.5))
	assert.Equal(t, 0.0, ScoreFromDistance(2.5))
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), "Vacation Policy")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "vacation policy")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-6)
}
