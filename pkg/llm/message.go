// Package llm holds the provider-agnostic conversation and generation types
// shared by the router, handlers and providers.
package llm

import (
	"fmt"
	"strings"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem:
		return r, nil
	default:
		return "", fmt.Errorf("unknown message role %q", s)
	}
}

// Message is a single, immutable entry in a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage is shorthand for constructing a Message.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// System, User and Assistant construct messages for the given role.
func System(content string) Message    { return NewMessage(RoleSystem, content) }
func User(content string) Message      { return NewMessage(RoleUser, content) }
func Assistant(content string) Message { return NewMessage(RoleAssistant, content) }

// CloneMessages returns a copy of msgs that can be appended to without
// aliasing the caller's backing array.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// NonEmpty drops messages whose content is blank.
func NonEmpty(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
