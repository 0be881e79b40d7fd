// Package subjects is the read-only restaurant lookup used to enrich answers
// and to resolve which restaurant a turn is about.
package subjects

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// AliasesKey is the optional entry attribute listing alternate names.
const AliasesKey = "aliases"

// Lookup maps subject names to free-form attributes. The zero value and a
// nil *Lookup are both empty.
type Lookup struct {
	entries map[string]any
	names   []string
	aliases map[string][]string
}

// Parse decodes a JSON object of name to attributes.
func Parse(data []byte) (*Lookup, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing subjects: %w", err)
	}
	if raw == nil {
		return nil, errors.New("subjects file is not a JSON object")
	}

	l := &Lookup{
		entries: raw,
		names:   make([]string, 0, len(raw)),
		aliases: make(map[string][]string),
	}
	for name, attrs := range raw {
		l.names = append(l.names, name)

		obj, ok := attrs.(map[string]any)
		if !ok {
			continue
		}
		list, ok := obj[AliasesKey].([]any)
		if !ok {
			continue
		}
		for _, a := range list {
			if s, ok := a.(string); ok && strings.TrimSpace(s) != "" {
				l.aliases[name] = append(l.aliases[name], s)
			}
		}
	}
	sort.Strings(l.names)

	return l, nil
}

// Load reads path once. A missing, unreadable or malformed file yields an
// empty lookup and a warning.
func Load(path string, logger *slog.Logger) *Lookup {
	if path == "" {
		return &Lookup{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("subject lookup unavailable", "path", path, "error", err)
		return &Lookup{}
	}

	l, err := Parse(data)
	if err != nil {
		logger.Warn("subject lookup unavailable", "path", path, "error", err)
		return &Lookup{}
	}

	logger.Info("subject lookup loaded", "path", path, "subjects", l.Len())
	return l
}

// Get returns the attributes for name. A miss returns an empty object.
func (l *Lookup) Get(name string) (any, bool) {
	if l == nil {
		return map[string]any{}, false
	}
	v, ok := l.entries[name]
	if !ok {
		return map[string]any{}, false
	}
	return v, true
}

// Names returns every subject name in sorted order.
func (l *Lookup) Names() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Aliases returns the alternate names listed for name.
func (l *Lookup) Aliases(name string) []string {
	if l == nil {
		return nil
	}
	return l.aliases[name]
}

// Len returns the number of subjects.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}
