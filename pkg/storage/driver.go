// Package storage persists thread checkpoints: the Merkle chain of messages
// and a per-thread record pointing at its head.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/merkle"
)

// Thread is the mutable per-thread record. Everything else in a store is
// content-addressed and immutable.
type Thread struct {
	ID string `json:"id"`

	// Head is the hash of the newest message node, "" for an empty history.
	Head string `json:"head"`

	// Subject is the restaurant the conversation settled on.
	Subject string `json:"subject,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Driver defines the interface for persisting and retrieving nodes and
// thread records in a storage backend.
type Driver interface {
	// Put stores a node. Returns true if the node was newly inserted,
	// false if it already exists. Put provides automatic deduplication via
	// content-addressing.
	Put(ctx context.Context, node *merkle.Node) (bool, error)

	// Get retrieves a node by its hash.
	Get(ctx context.Context, hash string) (*merkle.Node, error)

	// Has checks if a node exists by its hash.
	Has(ctx context.Context, hash string) (bool, error)

	// Ancestry returns the path from a node back to its root (node first, root last).
	Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error)

	// PutThread creates or replaces a thread record.
	PutThread(ctx context.Context, thread Thread) error

	// GetThread returns a thread record or a NotFoundError.
	GetThread(ctx context.Context, id string) (Thread, error)

	// Close closes the store and releases any resources.
	Close() error
}

// PutAll stores nodes in order and reports how many were new.
func PutAll(ctx context.Context, d Driver, nodes []*merkle.Node) (int, error) {
	inserted := 0
	for _, n := range nodes {
		isNew, err := d.Put(ctx, n)
		if err != nil {
			return inserted, err
		}
		if isNew {
			inserted++
		}
	}
	return inserted, nil
}
