package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

type memoryEntry struct {
	doc core.Document
	vec []float32
}

// MemoryStore is a process-local VectorStore holding documents and their
// embeddings in a map. Suitable for tests and small corpora.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder Embedder
	entries  map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory vector store using the given
// embedder.
func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder, entries: make(map[string]memoryEntry)}
}

// Upsert embeds and stores the documents, replacing any existing entries with
// the same id. Documents without an id are assigned one.
func (s *MemoryStore) Upsert(ctx context.Context, docs []core.Document) ([]string, error) {
	ids := make([]string, 0, len(docs))
	entries := make([]memoryEntry, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = core.NewID()
		}
		vec, err := s.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}
		ids = append(ids, doc.ID)
		entries = append(entries, memoryEntry{doc: doc, vec: vec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.doc.ID] = e
	}
	return ids, nil
}

// Query embeds the query text and returns the topK closest documents sorted
// by descending similarity score, ties broken by ascending document id.
func (s *MemoryStore) Query(ctx context.Context, query string, topK int) ([]core.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	results := make([]core.RetrievalResult, 0, len(s.entries))
	for _, e := range s.entries {
		d := cosineDistance(qvec, e.vec)
		results = append(results, core.RetrievalResult{Document: e.doc, Score: ScoreFromDistance(d)})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Document.ID < results[j].Document.ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes a document by id, reporting whether it existed.
func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok, nil
}

// Clear removes all documents.
func (s *MemoryStore) Clear(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return true, nil
}

// ScoreFromDistance maps a cosine distance in [0,2] to a similarity score in
// [0,1]. Smaller distance always yields a higher score.
func ScoreFromDistance(d float64) float64 {
	score := 1 - d/2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// cosineDistance returns 1 - cosine similarity, clamped to [0,2]. Zero
// vectors are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}
