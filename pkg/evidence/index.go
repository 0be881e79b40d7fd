// Package evidence owns the persisted review index: loading it fail-soft for
// serving, building it offline, and swapping a rebuilt index in while the
// server runs.
package evidence

import (
	"context"
	"fmt"

	"github.com/papercomputeco/tabletalk/pkg/embeddings"
	"github.com/papercomputeco/tabletalk/pkg/vector"
)

// DummyID marks the placeholder document written into an index built from an
// empty corpus. Retrieval never surfaces it.
const DummyID = "dummy"

// Searcher runs a similarity search for free text.
type Searcher interface {
	// Search returns up to k hits by ascending raw distance.
	Search(ctx context.Context, query string, k int) ([]vector.QueryResult, error)
}

// Index is a loaded, read-only evidence index.
type Index struct {
	driver   vector.Driver
	embedder embeddings.Embedder
	manifest Manifest
}

// NewIndex wraps an opened driver and the embedder used to query it.
func NewIndex(driver vector.Driver, embedder embeddings.Embedder, manifest Manifest) *Index {
	return &Index{
		driver:   driver,
		embedder: embedder,
		manifest: manifest,
	}
}

// Search embeds query and returns the nearest documents.
func (i *Index) Search(ctx context.Context, query string, k int) ([]vector.QueryResult, error) {
	emb, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := i.driver.Query(ctx, emb, k)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	return results, nil
}

// Manifest describes how the index was built.
func (i *Index) Manifest() Manifest {
	return i.manifest
}

// Close releases the underlying driver. The embedder is shared and owned by
// the caller.
func (i *Index) Close() error {
	return i.driver.Close()
}

var _ Searcher = (*Index)(nil)
