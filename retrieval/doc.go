// Package retrieval provides VectorStore implementations backing the agent's
// knowledge-base search: an in-memory cosine store for tests and small
// corpora, and a sqlite-vec backed store for durable indexes. Both derive a
// [0,1] similarity score from cosine distance d via score = 1 - d/2, so
// smaller distance always means higher score.
package retrieval
