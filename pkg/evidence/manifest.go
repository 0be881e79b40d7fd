package evidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// IndexFile is the sqlite-vec database inside an index directory.
	IndexFile = "index.db"

	// ManifestFile records build metadata next to IndexFile.
	ManifestFile = "meta.json"
)

// Manifest is the side table written with every sqlite-vec index.
type Manifest struct {
	Dimensions        uint      `json:"dimensions"`
	Documents         int       `json:"documents"`
	EmbeddingProvider string    `json:"embedding_provider,omitempty"`
	EmbeddingModel    string    `json:"embedding_model,omitempty"`
	Sources           []string  `json:"sources,omitempty"`
	BuiltAt           time.Time `json:"built_at"`
}

// Validate reports manifests that cannot describe a usable index.
func (m Manifest) Validate() error {
	if m.Dimensions == 0 {
		return errors.New("manifest has no embedding dimensions")
	}
	if m.Documents < 0 {
		return fmt.Errorf("manifest has negative document count %d", m.Documents)
	}
	return nil
}

// ReadManifest loads and validates dir/meta.json.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, fmt.Errorf("reading manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

// WriteManifest writes m to dir/meta.json.
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
