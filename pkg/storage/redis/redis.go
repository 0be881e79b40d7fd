// Package redis provides a Redis-backed storage driver. Nodes are stored as
// JSON under content-addressed keys; thread records expire after the
// configured TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/tabletalk/pkg/merkle"
	"github.com/papercomputeco/tabletalk/pkg/storage"
)

const (
	DefaultPrefix = "tabletalk"

	// maxAncestry guards against cycles in a corrupted store.
	maxAncestry = 100_000
)

// Driver implements storage.Driver on Redis.
type Driver struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// Config holds configuration for the Redis driver.
type Config struct {
	// URL is a redis:// connection URL.
	URL string

	// Prefix namespaces keys. Defaults to DefaultPrefix.
	Prefix string

	// TTL expires thread records. Zero keeps them forever. Nodes never expire
	// since they may be shared between threads.
	TTL time.Duration
}

// NewDriver connects to Redis.
func NewDriver(ctx context.Context, c Config) (*Driver, error) {
	opts, err := goredis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	prefix := c.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Driver{client: client, prefix: prefix, ttl: c.TTL}, nil
}

func (d *Driver) nodeKey(hash string) string {
	return d.prefix + ":node:" + hash
}

func (d *Driver) threadKey(id string) string {
	return d.prefix + ":thread:" + id
}

// Put stores a node with SETNX so existing nodes are left untouched.
func (d *Driver) Put(ctx context.Context, node *merkle.Node) (bool, error) {
	if node == nil {
		return false, errors.New("cannot store nil node")
	}

	data, err := json.Marshal(node)
	if err != nil {
		return false, fmt.Errorf("failed to marshal node: %w", err)
	}

	created, err := d.client.SetNX(ctx, d.nodeKey(node.Hash), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store node: %w", err)
	}
	return created, nil
}

// Get retrieves a node by its hash.
func (d *Driver) Get(ctx context.Context, hash string) (*merkle.Node, error) {
	data, err := d.client.Get(ctx, d.nodeKey(hash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.NotFoundError{Hash: hash}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	var node merkle.Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}
	return &node, nil
}

// Has checks if a node exists by its hash.
func (d *Driver) Has(ctx context.Context, hash string) (bool, error) {
	n, err := d.client.Exists(ctx, d.nodeKey(hash)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return n > 0, nil
}

// Ancestry returns the path from a node back to its root (node first, root last).
func (d *Driver) Ancestry(ctx context.Context, hash string) ([]*merkle.Node, error) {
	var path []*merkle.Node
	current := hash

	for range maxAncestry {
		node, err := d.Get(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("getting node %s: %w", current, err)
		}
		path = append(path, node)

		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}

	return nil, fmt.Errorf("ancestry of %s exceeds %d nodes", hash, maxAncestry)
}

// PutThread stores a thread record and refreshes its TTL.
func (d *Driver) PutThread(ctx context.Context, thread storage.Thread) error {
	if thread.ID == "" {
		return errors.New("thread id is required")
	}

	data, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}

	if err := d.client.Set(ctx, d.threadKey(thread.ID), data, d.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store thread: %w", err)
	}
	return nil
}

// GetThread returns a thread record.
func (d *Driver) GetThread(ctx context.Context, id string) (storage.Thread, error) {
	data, err := d.client.Get(ctx, d.threadKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return storage.Thread{}, storage.NotFoundError{Thread: id}
	}
	if err != nil {
		return storage.Thread{}, fmt.Errorf("failed to get thread: %w", err)
	}

	var t storage.Thread
	if err := json.Unmarshal(data, &t); err != nil {
		return storage.Thread{}, fmt.Errorf("failed to unmarshal thread: %w", err)
	}
	return t, nil
}

// Close closes the client.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ storage.Driver = (*Driver)(nil)
