// Package dotdir manages the .tabletalk/ and ~/.tabletalk directories.
//
// The directory holds config.toml and the chat client's thread state.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the tabletalk directory.
	dirName = ".tabletalk"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .tabletalk/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.tabletalk/ dir
//  3. Home ~/.tabletalk/ dir
//
// It returns "" when no directory is found.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating tabletalk directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if dir, ok := m.localDir(); ok {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if isDir(dir) {
		return dir, nil
	}

	return "", nil
}

// Ensure is Target, except that ~/.tabletalk/ is created when nothing is found.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating tabletalk directory %s: %w", dir, err)
	}
	return dir, nil
}

func (m *Manager) localDir() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := filepath.Join(cwd, dirName)
	return dir, isDir(dir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
