package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/evidence"
	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/retrieval"
)

const ragSystemPrompt = `You answer questions about restaurants using only the customer reviews provided.
Summarize what reviewers say, mention disagreements, and do not invent details that are not in the reviews.
Reply in the user's language.`

// IndexSource hands out the evidence index for a turn, or nil when it is
// unavailable. *evidence.Holder implements it.
type IndexSource interface {
	Current() evidence.Searcher
}

// RAGReview answers from retrieved reviews.
type RAGReview struct {
	Generator   llm.Generator
	Index       IndexSource
	TopK        int
	Temperature float64
	Timeout     time.Duration

	// OnRetrieve observes the number of hits kept for each search.
	OnRetrieve func(hits int)
}

// Handle guards against blank input, a missing index and empty evidence
// before making its one generation call.
func (r *RAGReview) Handle(ctx context.Context, state conversation.State) (conversation.State, error) {
	query := strings.TrimSpace(state.UserInput)
	if query == "" {
		return state.WithResponse(conversation.RouteRAGReview, ClarifyMessage, nil), nil
	}

	var index evidence.Searcher
	if r.Index != nil {
		index = r.Index.Current()
	}
	if index == nil {
		return state.WithResponse(conversation.RouteRAGReview, DegradedMessage, nil), nil
	}

	searchCtx, cancelSearch := withTimeout(ctx, r.Timeout)
	evidenceText, citations, err := retrieval.Retrieve(searchCtx, index, query, r.topK())
	cancelSearch()
	if err != nil {
		return state, fmt.Errorf("retrieving reviews: %w", err)
	}
	if r.OnRetrieve != nil {
		r.OnRetrieve(len(citations))
	}
	if evidenceText == "" {
		return state.WithResponse(conversation.RouteRAGReview, NoEvidenceMessage, nil), nil
	}

	var b strings.Builder
	if state.Subject != "" {
		fmt.Fprintf(&b, "Restaurant: %s\n", state.Subject)
	}
	fmt.Fprintf(&b, "Question: %s\n\nReviews:\n%s", query, evidenceText)

	msgs := []llm.Message{
		llm.System(ragSystemPrompt),
		llm.User(b.String()),
	}

	callCtx, cancel := withTimeout(ctx, r.Timeout)
	defer cancel()

	answer, err := r.Generator.Generate(callCtx, msgs, temperature(r.Temperature))
	if err != nil {
		return state, fmt.Errorf("generating review answer: %w", err)
	}

	return state.WithResponse(conversation.RouteRAGReview, answer, citations), nil
}

func (r *RAGReview) topK() int {
	if r.TopK <= 0 {
		return retrieval.DefaultK
	}
	return r.TopK
}

func (r *RAGReview) route() conversation.Route { return conversation.RouteRAGReview }
