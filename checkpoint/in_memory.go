package checkpoint

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

// InMemoryStore is a volatile CheckpointStore keeping each session's chain in
// a process-local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Loaded states and yielded checkpoints are
// clones, so callers can never mutate stored history.
type InMemoryStore struct {
	mu     sync.RWMutex
	chains map[string][]core.Checkpoint
}

// NewInMemoryStore constructs an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{chains: make(map[string][]core.Checkpoint)}
}

// Load returns a clone of the state at the session head, or a fresh empty
// state when the session has no checkpoints yet.
func (s *InMemoryStore) Load(sessionID string) (*core.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.chains[sessionID]
	if len(chain) == 0 {
		return core.NewConversationState(sessionID, "", 0), nil
	}
	head := chain[len(chain)-1]
	state := head.State.Clone()
	state.Seq = head.Seq
	return state, nil
}

// Append creates the next checkpoint. The state's Seq must equal the current
// head sequence, otherwise the append fails with *core.PersistenceError and
// nothing is written.
func (s *InMemoryStore) Append(sessionID string, state *core.ConversationState) (core.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chains[sessionID]
	var headSeq int64
	var parent *int64
	if len(chain) > 0 {
		headSeq = chain[len(chain)-1].Seq
	}
	if state.Seq != headSeq {
		return core.Checkpoint{}, &core.PersistenceError{
			SessionID: sessionID,
			Op:        "append",
			Err:       fmt.Errorf("stale parent: state at seq %d, head at seq %d", state.Seq, headSeq),
		}
	}
	if headSeq > 0 {
		p := headSeq
		parent = &p
	}

	snapshot := state.Clone()
	snapshot.Seq = headSeq + 1
	cp := core.Checkpoint{
		Seq:       headSeq + 1,
		Parent:    parent,
		State:     snapshot,
		CreatedAt: time.Now().UTC(),
	}
	s.chains[sessionID] = append(chain, cp)

	state.Seq = cp.Seq
	return cp, nil
}

// History yields the session's checkpoints in ascending sequence order. Each
// range over the returned sequence re-reads the chain, so iteration is
// restartable.
func (s *InMemoryStore) History(sessionID string) iter.Seq2[core.Checkpoint, error] {
	return func(yield func(core.Checkpoint, error) bool) {
		s.mu.RLock()
		chain := make([]core.Checkpoint, len(s.chains[sessionID]))
		copy(chain, s.chains[sessionID])
		s.mu.RUnlock()

		for _, cp := range chain {
			cp.State = cp.State.Clone()
			if !yield(cp, nil) {
				return
			}
		}
	}
}
