package testutils

import (
	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/merkle"
)

// NewTestBucket creates a simple bucket for testing
func NewTestBucket(role llm.Role, text string) merkle.Bucket {
	return merkle.BucketFor(llm.NewMessage(role, text))
}

// NewTestChain links alternating user and assistant messages.
func NewTestChain(texts ...string) []*merkle.Node {
	msgs := make([]llm.Message, len(texts))
	for i, t := range texts {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		msgs[i] = llm.NewMessage(role, t)
	}
	return merkle.Chain(msgs)
}
