// Package merkle is an implementation of a Merkle chain of conversation
// messages. Each node commits to its parent, so a thread's head hash
// identifies its whole history.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/tabletalk/pkg/llm"
)

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	// Bucket is the hashable content for the node.
	Bucket Bucket `json:"bucket"`
}

// NewNode creates a new node with the computed hash for the provided bucket.
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		parentHash := parent.Hash
		n.ParentHash = &parentHash
	}

	n.Hash = n.computeHash()
	return n
}

// computeHash hashes {parent, role, content}. Struct fields marshal in
// declaration order, which keeps the encoding stable.
func (n *Node) computeHash() string {
	parent := ""
	if n.ParentHash != nil {
		parent = *n.ParentHash
	}

	data, err := json.Marshal(struct {
		Parent  string   `json:"parent"`
		Role    llm.Role `json:"role"`
		Content string   `json:"content"`
	}{
		Parent:  parent,
		Role:    n.Bucket.Role,
		Content: n.Bucket.Content,
	})
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether the node's hash matches its content.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

// Parent returns the parent hash or "" for roots.
func (n *Node) Parent() string {
	if n.ParentHash == nil {
		return ""
	}
	return *n.ParentHash
}
