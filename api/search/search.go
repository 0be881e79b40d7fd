// Package search provides the retrieval-only lookup shared by the REST
// endpoint and the MCP tool. It runs the same retrieval the rag_review
// handler does, without generating an answer.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/handlers"
	"github.com/papercomputeco/tabletalk/pkg/retrieval"
)

const (
	// MaxK bounds how many hits a caller may request.
	MaxK = 50
)

var (
	// ErrUnavailable is returned when no evidence index is loaded.
	ErrUnavailable = errors.New("evidence index is unavailable")

	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is required")

	// ErrInvalidK is returned when k is outside [1, MaxK].
	ErrInvalidK = fmt.Errorf("k must be between 1 and %d", MaxK)
)

// Input is a retrieval request.
type Input struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Output is the evidence text and citations for a query.
type Output struct {
	Query     string                  `json:"query"`
	Evidence  string                  `json:"evidence"`
	Citations []conversation.Citation `json:"citations"`
	Count     int                     `json:"count"`
}

// Searcher retrieves evidence from whichever index is current at call time.
type Searcher struct {
	index  handlers.IndexSource
	logger *slog.Logger
}

// NewSearcher wraps index.
func NewSearcher(index handlers.IndexSource, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Searcher{index: index, logger: logger}
}

// Search validates in, then retrieves up to in.K hits. A zero K means
// retrieval.DefaultK.
func (s *Searcher) Search(ctx context.Context, in Input) (*Output, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	k := in.K
	if k == 0 {
		k = retrieval.DefaultK
	}
	if k < 1 || k > MaxK {
		return nil, ErrInvalidK
	}

	if s.index == nil {
		return nil, ErrUnavailable
	}
	index := s.index.Current()
	if index == nil {
		return nil, ErrUnavailable
	}

	s.logger.Debug("retrieve request", "query", query, "k", k)

	text, citations, err := retrieval.Retrieve(ctx, index, query, k)
	if err != nil {
		return nil, err
	}
	if citations == nil {
		citations = []conversation.Citation{}
	}

	return &Output{
		Query:     query,
		Evidence:  text,
		Citations: citations,
		Count:     len(citations),
	}, nil
}
