package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	threadFile = "thread.json"
)

// ThreadState is the chat client's current thread. The conversation itself
// lives server-side in the thread checkpoint; only the id is kept here.
type ThreadState struct {
	ThreadID  string    `json:"thread_id"`
	Subject   string    `json:"subject,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadThread loads the thread state from .tabletalk/thread.json.
// Returns nil, nil if no thread has been started.
func (m *Manager) LoadThread(overrideDir string) (*ThreadState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, threadFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading thread state: %w", err)
	}

	state := &ThreadState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing thread state: %w", err)
	}

	return state, nil
}

// SaveThread persists the thread state, creating ~/.tabletalk/ if needed.
func (m *Manager) SaveThread(state *ThreadState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil thread state")
	}
	if state.ThreadID == "" {
		return errors.New("cannot save thread state without a thread id")
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling thread state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, threadFile), data, 0o600); err != nil {
		return fmt.Errorf("writing thread state: %w", err)
	}

	return nil
}

// ClearThread removes the thread state so the next chat starts a new thread.
// Returns nil if there is nothing to clear.
func (m *Manager) ClearThread(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, threadFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing thread state: %w", err)
	}

	return nil
}
