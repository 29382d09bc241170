package core

import (
	"fmt"
	"iter"
	"time"
)

// Checkpoint is an immutable snapshot of conversation state. Checkpoints for
// a session form a single linear chain: each new checkpoint's parent must be
// the session head at write time, so the lineage can never fork.
type Checkpoint struct {
	Seq       int64              `json:"seq"`
	Parent    *int64             `json:"parent,omitempty"` // nil for the root checkpoint
	State     *ConversationState `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
}

// PersistenceError reports a failed checkpoint operation. An append that
// loses the head race returns a PersistenceError rather than forking or
// silently dropping a checkpoint.
type PersistenceError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CheckpointStore persists the per-session checkpoint chain. Implementations
// must be safe for concurrent use and must serialize appends per session id.
type CheckpointStore interface {
	// Load returns a clone of the state at the session head, or an empty
	// state (Seq zero) when the session has no checkpoints yet.
	Load(sessionID string) (*ConversationState, error)

	// Append atomically creates the next checkpoint from the given state.
	// It fails with *PersistenceError when state.Seq does not match the
	// current head, guarding against concurrent writers. On success the
	// returned checkpoint carries the new sequence number.
	Append(sessionID string, state *ConversationState) (Checkpoint, error)

	// History lazily yields the session's checkpoints in ascending sequence
	// order. The returned sequence is restartable: each range re-opens the
	// scan.
	History(sessionID string) iter.Seq2[Checkpoint, error]
}
