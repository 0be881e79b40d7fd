package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/tabletalk/pkg/llm"
)

// GenerateCall records one Generate invocation.
type GenerateCall struct {
	Messages    []llm.Message
	Temperature float64
}

// MockGenerator replays scripted replies in order and records every call.
// Once the script runs out, Default is returned.
type MockGenerator struct {
	mu sync.Mutex

	Replies []string
	Default string

	// Err, when set, is returned from every call.
	Err error

	// Block makes Generate wait for ctx to be done.
	Block bool

	Calls []GenerateCall
}

func NewMockGenerator(replies ...string) *MockGenerator {
	return &MockGenerator{Replies: replies, Default: "mock reply"}
}

func (m *MockGenerator) Generate(ctx context.Context, msgs []llm.Message, temperature float64) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, GenerateCall{Messages: llm.CloneMessages(msgs), Temperature: temperature})
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.Err != nil {
		return "", m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Replies) == 0 {
		if m.Default == "" {
			return "", errors.New("mock generator has no reply")
		}
		return m.Default, nil
	}
	reply := m.Replies[0]
	m.Replies = m.Replies[1:]
	return reply, nil
}

// CallCount returns the number of Generate calls so far.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent call, or the zero value.
func (m *MockGenerator) LastCall() GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return GenerateCall{}
	}
	return m.Calls[len(m.Calls)-1]
}

func (m *MockGenerator) Close() error {
	return nil
}
