package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/tabletalk/api/search"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
)

var (
	turnToolName    = "turn"
	turnDescription = "Ask the restaurant review assistant a question. Answers are routed to small talk, restaurant facts or customer reviews, and review answers carry citations. Pass thread_id back on later calls to continue the same conversation."

	retrieveToolName    = "retrieve_reviews"
	retrieveDescription = "Retrieve the customer reviews most similar to a query, without generating an answer. Returns the evidence text and one citation per review, best match first."
)

// TurnInput represents the input arguments for the turn tool.
type TurnInput struct {
	UserInput string `json:"user_input" jsonschema:"the user's message"`
	ThreadID  string `json:"thread_id,omitempty" jsonschema:"thread to continue; omit to start a new one"`
}

// RetrieveInput represents the input arguments for the retrieve_reviews tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the text to find similar reviews for"`
	K     int    `json:"k,omitempty" jsonschema:"number of reviews to return (default: 5, max: 50)"`
}

func (s *Server) handleTurn(ctx context.Context, _ *mcp.CallToolRequest, input TurnInput) (*mcp.CallToolResult, orchestrator.TurnResult, error) {
	logger := s.config.Logger

	logger.Debug("MCP turn request", "thread_id", input.ThreadID)

	result, err := s.config.Turns.Run(ctx, orchestrator.TurnRequest{
		ThreadID:  input.ThreadID,
		UserInput: input.UserInput,
	})
	if err != nil {
		logger.Error("MCP turn failed", "thread_id", input.ThreadID, "error", err)
		return toolError("Turn failed: %v", err), orchestrator.TurnResult{}, nil
	}

	return structured(result)
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, search.Output, error) {
	logger := s.config.Logger

	out, err := s.config.Searcher.Search(ctx, search.Input{Query: input.Query, K: input.K})
	if err != nil {
		logger.Warn("MCP retrieve failed", "query", input.Query, "error", err)
		return toolError("Retrieval failed: %v", err), search.Output{}, nil
	}

	return structured(*out)
}

// structured returns out as structured content plus its JSON serialization
// in a text block, which MCP requires of tools with structured output.
func structured[T any](out T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(out)
	if err != nil {
		var zero T
		return toolError("Failed to serialize results: %v", err), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, out, nil
}

func toolError(format string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, err)},
		},
	}
}
