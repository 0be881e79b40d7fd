// Package api provides the caller-facing HTTP API: conversation turns,
// retrieval, thread checkpoints, subjects, metrics and the MCP endpoint.
package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/papercomputeco/tabletalk/api/mcp"
	"github.com/papercomputeco/tabletalk/pkg/checkpoint"
	"github.com/papercomputeco/tabletalk/pkg/handlers"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Turns runs POST /v1/turn. Required.
	Turns mcp.TurnRunner

	// Index backs GET /v1/retrieve. A nil index, or one that reports no
	// current index, answers 503.
	Index handlers.IndexSource

	// Checkpoints backs GET /v1/threads/:id. Required.
	Checkpoints *checkpoint.Store

	// Subjects backs GET /v1/subjects.
	Subjects orchestrator.CandidateSource

	// Gatherer is served on /metrics when set.
	Gatherer prometheus.Gatherer

	// TurnTimeout bounds a whole turn. Zero means no bound beyond the
	// per-call timeouts.
	TurnTimeout time.Duration

	// Tracing adds an OpenTelemetry span per request.
	Tracing bool

	// DisableMCP serves an MCP endpoint without tools.
	DisableMCP bool
}
