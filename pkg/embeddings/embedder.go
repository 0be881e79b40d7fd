// Package embeddings defines the text-embedding capability used to build and
// query the evidence index.
package embeddings

import "context"

// Embedder provides text embedding capabilities. Every vector produced by a
// given Embedder has the same dimension.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
