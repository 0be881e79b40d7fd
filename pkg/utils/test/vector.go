package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/tabletalk/pkg/evidence"
	"github.com/papercomputeco/tabletalk/pkg/vector"
)

// MockVectorDriver is a test vector driver. Query returns Results as given,
// in their given order, truncated to topK.
type MockVectorDriver struct {
	Documents []vector.Document
	Results   []vector.QueryResult

	// FailQuery causes Query to return an error.
	FailQuery bool

	// Closed is set once Close is called.
	Closed bool
}

func NewMockVectorDriver(results ...vector.QueryResult) *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make([]vector.Document, 0),
		Results:   results,
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	if m.FailQuery {
		return nil, errors.New("mock query failure")
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, _ []string) ([]vector.Document, error) {
	return m.Documents, nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	return len(m.Documents), nil
}

func (m *MockVectorDriver) Close() error {
	m.Closed = true
	return nil
}

// StubSearcher is an evidence.Searcher that returns canned hits.
type StubSearcher struct {
	Results []vector.QueryResult
	Err     error

	// Queries records every query passed to Search.
	Queries []string
}

func (s *StubSearcher) Search(_ context.Context, query string, k int) ([]vector.QueryResult, error) {
	s.Queries = append(s.Queries, query)
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Results) < k {
		return s.Results, nil
	}
	return s.Results[:k], nil
}

// Hit builds a QueryResult for tests.
func Hit(id, source, text string, distance float64) vector.QueryResult {
	return vector.QueryResult{
		Document: vector.Document{
			ID:       id,
			Text:     text,
			Metadata: map[string]string{"id": id, "source": source},
		},
		Distance: distance,
	}
}

// StaticIndex always hands out the same searcher. A nil Searcher reports the
// index as unavailable.
type StaticIndex struct {
	Searcher evidence.Searcher
}

func (s StaticIndex) Current() evidence.Searcher {
	if s.Searcher == nil {
		return nil
	}
	return s.Searcher
}
