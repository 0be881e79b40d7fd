package merkle

import "github.com/papercomputeco/tabletalk/pkg/llm"

// Chain links msgs into nodes, root first. Equal histories always produce
// equal chains, so re-sending a history dedupes in storage.
func Chain(msgs []llm.Message) []*Node {
	nodes := make([]*Node, 0, len(msgs))
	var parent *Node
	for _, m := range msgs {
		n := NewNode(BucketFor(m), parent)
		nodes = append(nodes, n)
		parent = n
	}
	return nodes
}

// Head returns the hash of the last node, or "" for an empty chain.
func Head(nodes []*Node) string {
	if len(nodes) == 0 {
		return ""
	}
	return nodes[len(nodes)-1].Hash
}

// Messages turns an ancestry (node first, root last) back into a
// chronological history.
func Messages(ancestry []*Node) []llm.Message {
	msgs := make([]llm.Message, len(ancestry))
	for i, n := range ancestry {
		msgs[len(ancestry)-1-i] = n.Bucket.Message()
	}
	return msgs
}
