package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
)

func init() {
	// Auto-register the sqlite-vec extension on every connection.
	sqlite_vec.Auto()
}

// SQLiteStore is a durable VectorStore backed by SQLite with the sqlite-vec
// extension. Documents live in a plain table; embeddings live in a vec0
// virtual table queried with vec_distance_cosine.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
}

// NewSQLiteStore opens (or creates) the vector database at path.
func NewSQLiteStore(path string, embedder Embedder) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	s := &SQLiteStore{db: db, embedder: embedder}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id            TEXT PRIMARY KEY,
			content       TEXT NOT NULL,
			source        TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			content_length INTEGER NOT NULL,
			document_type TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	vectorSchema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
			document_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		)
	`, s.embedder.Dimension())
	if _, err := s.db.Exec(vectorSchema); err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Upsert embeds and stores the documents.
func (s *SQLiteStore) Upsert(ctx context.Context, docs []core.Document) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = core.NewID()
		}
		vec, err := s.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
		}
		embeddingJSON, err := json.Marshal(vec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO documents (id, content, source, created_at, content_length, document_type)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.Content, doc.Metadata.Source, doc.Metadata.CreatedAt.UTC(),
			doc.Metadata.ContentLength, doc.Metadata.DocumentType,
		); err != nil {
			return nil, fmt.Errorf("failed to store document %s: %w", doc.ID, err)
		}
		// vec0 virtual tables reject INSERT OR REPLACE; delete then insert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, doc.ID); err != nil {
			return nil, fmt.Errorf("failed to replace embedding %s: %w", doc.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO embeddings (document_id, embedding) VALUES (?, ?)`,
			doc.ID, string(embeddingJSON),
		); err != nil {
			return nil, fmt.Errorf("failed to store embedding %s: %w", doc.ID, err)
		}
		ids = append(ids, doc.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return ids, nil
}

// Query returns the topK closest documents ordered by descending similarity,
// ties broken by ascending document id.
func (s *SQLiteStore) Query(ctx context.Context, query string, topK int) ([]core.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	embeddingJSON, err := json.Marshal(qvec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.content, d.source, d.created_at, d.content_length, d.document_type,
			vec_distance_cosine(e.embedding, ?) AS distance
		FROM embeddings e
		JOIN documents d ON d.id = e.document_id
		ORDER BY distance ASC, d.id ASC
		LIMIT ?
	`, string(embeddingJSON), topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	var results []core.RetrievalResult
	for rows.Next() {
		var doc core.Document
		var createdAt time.Time
		var distance float64
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Metadata.Source, &createdAt,
			&doc.Metadata.ContentLength, &doc.Metadata.DocumentType, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		doc.Metadata.CreatedAt = createdAt
		results = append(results, core.RetrievalResult{Document: doc, Score: ScoreFromDistance(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	return results, nil
}

// Delete removes a document and its embedding atomically, reporting whether
// the document existed.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n > 0, nil
}

// Clear removes all documents and embeddings atomically.
func (s *SQLiteStore) Clear(ctx context.Context) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return false, fmt.Errorf("failed to clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings`); err != nil {
		return false, fmt.Errorf("failed to clear embeddings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit clear: %w", err)
	}
	return true, nil
}
