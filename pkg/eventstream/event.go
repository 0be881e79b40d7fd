package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a turn is answered and checkpointed.
	EventTypeTurnCompleted = "tabletalk.turn.completed"
)

// TurnEvent is a transport-neutral event payload for a completed turn. It
// carries routing outcome and timing only, never message content.
type TurnEvent struct {
	SchemaVersion int                `json:"schema_version"`
	EventType     string             `json:"event_type"`
	ID            string             `json:"event_id"`
	ThreadID      string             `json:"thread_id"`
	Route         conversation.Route `json:"route"`
	LastNode      conversation.Route `json:"last_node"`
	Subject       string             `json:"subject,omitempty"`
	CitationCount int                `json:"citation_count"`
	Head          string             `json:"head,omitempty"`
	Duration      time.Duration      `json:"duration_ns"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NewTurnEvent stamps a TurnEvent with a fresh id, schema and creation time.
func NewTurnEvent(threadID string, route, lastNode conversation.Route, subject string, citations int, duration time.Duration) *TurnEvent {
	return &TurnEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		ID:            uuid.NewString(),
		ThreadID:      threadID,
		Route:         route,
		LastNode:      lastNode,
		Subject:       subject,
		CitationCount: citations,
		Duration:      duration,
		CreatedAt:     time.Now().UTC(),
	}
}
