package core

import (
	"context"
	"time"
)

// DocumentMetadata describes provenance of a knowledge-base document.
type DocumentMetadata struct {
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
	ContentLength int       `json:"content_length"`
	DocumentType  string    `json:"document_type"`
}

// Document is an embedded knowledge-base entry.
type Document struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// RetrievalResult pairs a document with its similarity score in [0,1]
// (higher is more similar).
type RetrievalResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// VectorStore provides upsert and similarity query over embedded documents.
// Query results are ordered by descending score with ties broken by ascending
// document id. Backend failures surface as errors to the caller; the search
// tool is responsible for flattening them into observable content.
type VectorStore interface {
	Upsert(ctx context.Context, docs []Document) ([]string, error)
	Query(ctx context.Context, query string, topK int) ([]RetrievalResult, error)
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) (bool, error)
}
