// Package inmemory provides a process-local storage driver. Nodes live in a
// map; thread records live in a go-cache with an optional TTL so abandoned
// threads age out.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/papercomputeco/tabletalk/pkg/merkle"
	"github.com/papercomputeco/tabletalk/pkg/storage"
)

// Driver implements storage.Driver in memory.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of nodes
	mu sync.RWMutex

	// nodes is the in memory map of nodes where the key is the content-addressed
	// hash for the node
	nodes map[string]*merkle.Node

	threads *cache.Cache
}

// NewDriver creates a new in-memory store. A zero ttl keeps threads forever.
func NewDriver(ttl time.Duration) *Driver {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 2
	}

	return &Driver{
		nodes:   make(map[string]*merkle.Node),
		threads: cache.New(expiration, cleanup),
	}
}

// Put stores a node. Returns true if the node was newly inserted,
// false if it already existed (no-op due to content-addressing).
func (s *Driver) Put(_ context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[node.Hash]; ok {
		return false, nil
	}

	s.nodes[node.Hash] = node
	return true, nil
}

// Get retrieves a node by its hash.
func (s *Driver) Get(_ context.Context, hash string) (*merkle.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[hash]
	if !ok {
		return nil, storage.NotFoundError{Hash: hash}
	}

	return node, nil
}

// Has checks if a node exists by its hash.
func (s *Driver) Has(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.nodes[hash]
	return ok, nil
}

// Ancestry returns the path from a node back to its root (node first, root last).
func (s *Driver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	var path []*merkle.Node
	current := hash

	for {
		node, err := s.Get(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("getting node %s: %w", current, err)
		}
		path = append(path, node)

		if node.ParentHash == nil {
			break
		}
		current = *node.ParentHash
	}

	return path, nil
}

// PutThread stores a thread record, resetting its TTL.
func (s *Driver) PutThread(_ context.Context, thread storage.Thread) error {
	if thread.ID == "" {
		return errors.New("thread id is required")
	}
	s.threads.Set(thread.ID, thread, cache.DefaultExpiration)
	return nil
}

// GetThread returns a thread record.
func (s *Driver) GetThread(_ context.Context, id string) (storage.Thread, error) {
	v, ok := s.threads.Get(id)
	if !ok {
		return storage.Thread{}, storage.NotFoundError{Thread: id}
	}
	return v.(storage.Thread), nil
}

// Count returns the number of nodes in the in-memory store.
func (s *Driver) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
