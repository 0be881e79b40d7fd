// Package retrieval turns similarity hits into an evidence text and the
// citations that back it.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/evidence"
	"github.com/papercomputeco/tabletalk/pkg/vector"
)

// DefaultK is the number of hits requested when the caller does not say.
const DefaultK = 5

// Retrieve searches index for query and returns the evidence text with one
// citation per retained hit, in rank order. A nil index or blank query yields
// empty results and no error. Search failures are returned.
func Retrieve(ctx context.Context, index evidence.Searcher, query string, k int) (string, []conversation.Citation, error) {
	if index == nil || strings.TrimSpace(query) == "" {
		return "", nil, nil
	}
	if k <= 0 {
		k = DefaultK
	}

	hits, err := index.Search(ctx, query, k)
	if err != nil {
		return "", nil, fmt.Errorf("searching evidence: %w", err)
	}

	text, citations := Assemble(hits)
	return text, citations, nil
}

// Assemble orders hits by ascending distance, drops placeholder documents and
// builds the evidence text and citations.
func Assemble(hits []vector.QueryResult) (string, []conversation.Citation) {
	sorted := make([]vector.QueryResult, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})

	var (
		texts     []string
		citations []conversation.Citation
	)
	for _, hit := range sorted {
		if hit.Metadata["id"] == evidence.DummyID {
			continue
		}

		text := strings.TrimSpace(hit.Text)
		texts = append(texts, text)
		citations = append(citations, conversation.Citation{
			ID:      citationID(hit),
			Source:  hit.Metadata["source"],
			Score:   hit.Distance,
			Snippet: conversation.Snippet(text),
		})
	}

	return strings.Join(texts, "\n\n"), citations
}

func citationID(hit vector.QueryResult) string {
	if id, ok := hit.Metadata["id"]; ok && id != "" {
		return id
	}
	return hit.ID
}
