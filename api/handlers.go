package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tabletalk/api/search"
	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
	"github.com/papercomputeco/tabletalk/pkg/storage"
)

// TurnRequest is the POST /v1/turn body.
type TurnRequest struct {
	ThreadID  string           `json:"thread_id" validate:"omitempty,max=128,printascii"`
	History   []HistoryMessage `json:"history" validate:"omitempty,max=200,dive"`
	UserInput string           `json:"user_input" validate:"max=8000"`
}

// HistoryMessage is one prior message supplied by the caller.
type HistoryMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"max=32000"`
}

// SubjectsResponse lists the known restaurants.
type SubjectsResponse struct {
	Subjects []string `json:"subjects"`
	Count    int      `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleTurn runs one conversation turn.
func (s *Server) handleTurn(c *fiber.Ctx) error {
	var body TurnRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if err := s.validate.Struct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	history := make([]llm.Message, 0, len(body.History))
	for _, m := range body.History {
		role, err := llm.ParseRole(m.Role)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
		}
		history = append(history, llm.NewMessage(role, m.Content))
	}

	ctx := c.UserContext()
	if s.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TurnTimeout)
		defer cancel()
	}

	result, err := s.config.Turns.Run(ctx, orchestrator.TurnRequest{
		ThreadID:  body.ThreadID,
		History:   history,
		UserInput: body.UserInput,
	})
	if err != nil {
		return c.Status(turnErrorStatus(err)).JSON(llm.ErrorResponse{Error: "turn failed"})
	}

	return c.JSON(result)
}

// turnErrorStatus maps a turn failure to its HTTP status. The body stays
// generic; details are in the server log.
func turnErrorStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, orchestrator.ErrTurnFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// handleRetrieve handles GET /v1/retrieve requests.
// Query parameters:
//   - query (required): the search query text
//   - k (optional, default 5): number of reviews to return, 1 to 50
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	k := 0
	if kStr := c.Query("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		// an explicit zero would otherwise mean "default"
		if err != nil || parsed == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
				Error: search.ErrInvalidK.Error(),
			})
		}
		k = parsed
	}

	output, err := s.searcher.Search(c.UserContext(), search.Input{
		Query: c.Query("query"),
		K:     k,
	})
	switch {
	case errors.Is(err, search.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, search.ErrInvalidK):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	case err != nil:
		s.logger.Error("retrieval failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "retrieval failed"})
	}

	return c.JSON(output)
}

// handleGetThread returns a thread's checkpointed history and subject.
func (s *Server) handleGetThread(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "thread id required"})
	}

	cp, err := s.config.Checkpoints.Load(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "thread not found"})
	}
	if err != nil {
		s.logger.Error("loading thread", "thread_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load thread"})
	}

	if cp.History == nil {
		cp.History = []llm.Message{}
	}
	return c.JSON(cp)
}

// handleListSubjects returns the candidate restaurant names.
func (s *Server) handleListSubjects(c *fiber.Ctx) error {
	names := []string{}
	if s.config.Subjects != nil {
		names = append(names, s.config.Subjects.Names()...)
	}
	return c.JSON(SubjectsResponse{Subjects: names, Count: len(names)})
}
