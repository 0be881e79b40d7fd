// Package vector provides the storage contract behind the evidence index and
// its backend implementations.
package vector

import "context"

// Document is an indexed review (or any evidence text) with its embedding.
type Document struct {
	// ID is the backend-unique identifier for the document.
	ID string

	// Text is the full document text.
	Text string

	// Metadata carries provenance (source, row_index, rating, date, id).
	Metadata map[string]string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// QueryResult is a nearest-neighbor hit.
type QueryResult struct {
	Document

	// Distance is the raw metric-space distance reported by the backend.
	// Lower is closer. It is never renormalized into a similarity.
	Distance float64
}

// Driver handles storage and nearest-neighbor lookup of documents.
type Driver interface {
	// Add stores documents with their embeddings, replacing documents that
	// share an ID.
	Add(ctx context.Context, docs []Document) error

	// Query returns up to topK documents ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
