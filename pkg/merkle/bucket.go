package merkle

import "github.com/papercomputeco/tabletalk/pkg/llm"

// Bucket represents the hashable content stored in a Merkle DAG node: one
// conversation message.
type Bucket struct {
	// Role indicates who produced this message ("system", "user", "assistant")
	Role llm.Role `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// BucketFor wraps a message.
func BucketFor(m llm.Message) Bucket {
	return Bucket{Role: m.Role, Content: m.Content}
}

// Message returns the message held by the bucket.
func (b Bucket) Message() llm.Message {
	return llm.NewMessage(b.Role, b.Content)
}
