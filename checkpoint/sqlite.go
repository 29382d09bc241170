package checkpoint

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

// SQLiteStore is a durable CheckpointStore backed by SQLite. State snapshots
// are stored as JSON; the (session_id, seq) primary key plus a transactional
// head re-check keep each chain strictly linear even across processes.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the checkpoint database at path. WAL mode
// is enabled so concurrent readers do not block the single writer.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			session_id TEXT NOT NULL,
			seq        INTEGER NOT NULL,
			parent     INTEGER,
			state      TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (session_id, seq)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize checkpoint schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Load returns the state at the session head, or a fresh empty state when the
// session has no checkpoints yet.
func (s *SQLiteStore) Load(sessionID string) (*core.ConversationState, error) {
	row := s.db.QueryRow(
		`SELECT seq, state FROM checkpoints WHERE session_id = ? ORDER BY seq DESC LIMIT 1`,
		sessionID,
	)
	var seq int64
	var raw string
	if err := row.Scan(&seq, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.NewConversationState(sessionID, "", 0), nil
		}
		return nil, &core.PersistenceError{SessionID: sessionID, Op: "load", Err: err}
	}
	state := new(core.ConversationState)
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, &core.PersistenceError{SessionID: sessionID, Op: "load", Err: err}
	}
	state.Seq = seq
	return state, nil
}

// Append creates the next checkpoint inside a transaction, re-reading the
// head sequence for the concurrent-writer guard.
func (s *SQLiteStore) Append(sessionID string, state *core.ConversationState) (core.Checkpoint, error) {
	fail := func(err error) (core.Checkpoint, error) {
		return core.Checkpoint{}, &core.PersistenceError{SessionID: sessionID, Op: "append", Err: err}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fail(err)
	}
	defer tx.Rollback()

	var headSeq int64
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) FROM checkpoints WHERE session_id = ?`,
		sessionID,
	).Scan(&headSeq); err != nil {
		return fail(err)
	}
	if state.Seq != headSeq {
		return fail(fmt.Errorf("stale parent: state at seq %d, head at seq %d", state.Seq, headSeq))
	}

	var parent *int64
	if headSeq > 0 {
		p := headSeq
		parent = &p
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fail(err)
	}

	createdAt := time.Now().UTC()
	if _, err := tx.Exec(
		`INSERT INTO checkpoints (session_id, seq, parent, state, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, headSeq+1, parent, string(raw), createdAt,
	); err != nil {
		return fail(err)
	}
	if err := tx.Commit(); err != nil {
		return fail(err)
	}

	snapshot := state.Clone()
	snapshot.Seq = headSeq + 1
	state.Seq = headSeq + 1
	return core.Checkpoint{Seq: headSeq + 1, Parent: parent, State: snapshot, CreatedAt: createdAt}, nil
}

// History lazily streams the session's checkpoints in ascending sequence
// order. Each range re-runs the query, so iteration is restartable.
func (s *SQLiteStore) History(sessionID string) iter.Seq2[core.Checkpoint, error] {
	return func(yield func(core.Checkpoint, error) bool) {
		rows, err := s.db.Query(
			`SELECT seq, parent, state, created_at FROM checkpoints WHERE session_id = ? ORDER BY seq ASC`,
			sessionID,
		)
		if err != nil {
			yield(core.Checkpoint{}, &core.PersistenceError{SessionID: sessionID, Op: "history", Err: err})
			return
		}
		defer rows.Close()

		for rows.Next() {
			var cp core.Checkpoint
			var raw string
			if err := rows.Scan(&cp.Seq, &cp.Parent, &raw, &cp.CreatedAt); err != nil {
				yield(core.Checkpoint{}, &core.PersistenceError{SessionID: sessionID, Op: "history", Err: err})
				return
			}
			state := new(core.ConversationState)
			if err := json.Unmarshal([]byte(raw), state); err != nil {
				yield(core.Checkpoint{}, &core.PersistenceError{SessionID: sessionID, Op: "history", Err: err})
				return
			}
			state.Seq = cp.Seq
			cp.State = state
			if !yield(cp, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(core.Checkpoint{}, &core.PersistenceError{SessionID: sessionID, Op: "history", Err: err})
		}
	}
}
