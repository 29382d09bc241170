// Package checkpoint provides CheckpointStore implementations: a volatile
// in-memory store for tests and ephemeral servers, and a SQLite-backed store
// for durable, resumable sessions. Both enforce the linear-lineage invariant:
// appends are serialized per session and rejected when the caller's state is
// not based on the current head.
package checkpoint
