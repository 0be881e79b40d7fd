// Package mcp provides an MCP (Model Context Protocol) server exposing the
// turn pipeline and review retrieval as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/tabletalk/api/search"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
	"github.com/papercomputeco/tabletalk/pkg/utils"
)

// TurnRunner runs one conversation turn. *orchestrator.Orchestrator
// implements it.
type TurnRunner interface {
	Run(ctx context.Context, req orchestrator.TurnRequest) (orchestrator.TurnResult, error)
}

type Config struct {
	// Turns runs the turn tool.
	Turns TurnRunner

	// Searcher backs the retrieve_reviews tool.
	Searcher *search.Searcher

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the turn and retrieve_reviews tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tabletalk",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Turns == nil {
			return nil, errors.New("turn runner is required")
		}
		if c.Searcher == nil {
			return nil, errors.New("searcher is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        turnToolName,
			Description: turnDescription,
		}, s.handleTurn)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        retrieveToolName,
			Description: retrieveDescription,
		}, s.handleRetrieve)
	}

	s.mcpServer = mcpServer

	// stateless: every request gets the same server
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
