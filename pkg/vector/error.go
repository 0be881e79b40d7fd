package vector

import "errors"

var (
	// ErrNotFound is returned when a document or collection does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store cannot be reached.
	ErrConnection = errors.New("vector store connection failed")
)
