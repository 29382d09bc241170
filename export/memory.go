// Package export provides sinks for the finished onboarding record. The
// export tool hands a core.ExportArtifact to a sink after the completeness
// gate passes; re-exporting a session overwrites the prior artifact.
package export

import (
	"fmt"
	"sync"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

// ErrNotFound is returned when no artifact exists for the given session id.
var ErrNotFound = fmt.Errorf("export artifact not found")

// MemorySink is a trivial in-process ExportSink useful for tests, examples
// and single-process prototypes. Artifacts are keyed by session id in a map
// guarded by an RWMutex.
//
// This implementation is intentionally minimal; it does not enforce retention
// limits or survive process restarts. For durable exports use FileSink or a
// database-backed implementation.
type MemorySink struct {
	mu        sync.RWMutex
	artifacts map[string]core.ExportArtifact
}

// NewMemorySink returns an empty in-memory export sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{artifacts: make(map[string]core.ExportArtifact)}
}

// Put stores (or overwrites) the artifact for its session id.
func (s *MemorySink) Put(artifact core.ExportArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifact.SessionID] = artifact
	return nil
}

// Get returns the stored artifact for a session id or ErrNotFound.
func (s *MemorySink) Get(sessionID string) (core.ExportArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifact, ok := s.artifacts[sessionID]
	if !ok {
		return core.ExportArtifact{}, ErrNotFound
	}
	return artifact, nil
}

// List returns the session ids with stored artifacts. The slice is a snapshot
// and safe for caller mutation.
func (s *MemorySink) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.artifacts))
	for id := range s.artifacts {
		ids = append(ids, id)
	}
	return ids
}

var _ core.ExportSink = (*MemorySink)(nil)
