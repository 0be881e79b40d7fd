// Package checkpoint persists a thread's history and subject between turns.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/merkle"
	"github.com/papercomputeco/tabletalk/pkg/storage"
)

// Checkpoint is the saved state of one thread.
type Checkpoint struct {
	ThreadID  string        `json:"thread_id"`
	History   []llm.Message `json:"history"`
	Subject   string        `json:"subject,omitempty"`
	Head      string        `json:"head,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Store reads and writes checkpoints on a storage.Driver. It does not
// serialize writers; callers hold a per-thread lock around Load and Save.
type Store struct {
	driver storage.Driver
	logger *slog.Logger
	now    func() time.Time
}

// NewStore wraps driver.
func NewStore(driver storage.Driver, logger *slog.Logger) *Store {
	return &Store{driver: driver, logger: logger, now: time.Now}
}

// Load returns the thread's checkpoint. A thread that was never saved
// returns a storage.NotFoundError.
func (s *Store) Load(ctx context.Context, threadID string) (Checkpoint, error) {
	thread, err := s.driver.GetThread(ctx, threadID)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("loading thread %s: %w", threadID, err)
	}

	cp := Checkpoint{
		ThreadID:  thread.ID,
		Subject:   thread.Subject,
		Head:      thread.Head,
		UpdatedAt: thread.UpdatedAt,
	}
	if thread.Head == "" {
		return cp, nil
	}

	ancestry, err := s.driver.Ancestry(ctx, thread.Head)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("loading history for thread %s: %w", threadID, err)
	}
	cp.History = merkle.Messages(ancestry)
	return cp, nil
}

// LoadOrEmpty is Load that treats an unknown thread as an empty checkpoint.
func (s *Store) LoadOrEmpty(ctx context.Context, threadID string) (Checkpoint, error) {
	cp, err := s.Load(ctx, threadID)
	if errors.Is(err, storage.ErrNotFound) {
		return Checkpoint{ThreadID: threadID}, nil
	}
	return cp, err
}

// Save writes history as a Merkle chain and points the thread at its head.
// Nodes shared with an earlier save are deduplicated by the driver.
func (s *Store) Save(ctx context.Context, threadID string, history []llm.Message, subject string) (Checkpoint, error) {
	if threadID == "" {
		return Checkpoint{}, errors.New("thread id is required")
	}

	nodes := merkle.Chain(history)
	inserted, err := storage.PutAll(ctx, s.driver, nodes)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("storing history for thread %s: %w", threadID, err)
	}

	thread := storage.Thread{
		ID:        threadID,
		Head:      merkle.Head(nodes),
		Subject:   subject,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.driver.PutThread(ctx, thread); err != nil {
		return Checkpoint{}, fmt.Errorf("storing thread %s: %w", threadID, err)
	}

	s.logger.Debug("checkpoint saved",
		"thread_id", threadID,
		"head", thread.Head,
		"messages", len(nodes),
		"new_nodes", inserted,
		"subject", subject,
	)

	return Checkpoint{
		ThreadID:  threadID,
		History:   llm.CloneMessages(history),
		Subject:   subject,
		Head:      thread.Head,
		UpdatedAt: thread.UpdatedAt,
	}, nil
}
