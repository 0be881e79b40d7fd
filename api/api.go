package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/tabletalk/api/mcp"
	"github.com/papercomputeco/tabletalk/api/search"
)

// Server is the API server for the tabletalk turn pipeline.
type Server struct {
	config   Config
	searcher *search.Searcher
	validate *validator.Validate
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server. The turn runner, index and checkpoint
// store are injected so the same instances can back other components.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Turns == nil {
		return nil, errors.New("turn runner is required")
	}
	if config.Checkpoints == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		searcher: search.NewSearcher(config.Index, logger),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		app:      app,
	}

	if config.Tracing {
		app.Use(otelfiber.Middleware())
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Turns:    config.Turns,
		Searcher: s.searcher,
		Noop:     config.DisableMCP,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/turn", s.handleTurn)
	v1.Get("/retrieve", s.handleRetrieve)
	v1.Get("/threads/:id", s.handleGetThread)
	v1.Get("/subjects", s.handleListSubjects)

	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	if config.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
