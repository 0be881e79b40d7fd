// Package orchestrator runs a single conversation turn through the router,
// the selected handler and the chat convergence node, then checkpoints the
// thread and publishes a turn event.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/tabletalk/pkg/checkpoint"
	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/eventstream"
	"github.com/papercomputeco/tabletalk/pkg/handlers"
	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/metrics"
	"github.com/papercomputeco/tabletalk/pkg/worker"
)

var tracer = otel.Tracer("github.com/papercomputeco/tabletalk/pkg/orchestrator")

// Classifier picks a route and subject for a turn. *router.Router implements it.
type Classifier interface {
	Classify(ctx context.Context, state conversation.State, candidates []string) (conversation.Route, string, error)
}

// CandidateSource lists the known subjects. *subjects.Lookup implements it.
type CandidateSource interface {
	Names() []string
}

// EventSink accepts turn events without blocking. *worker.Pool implements it.
type EventSink interface {
	Enqueue(event *eventstream.TurnEvent) error
}

// TurnRequest is one user turn.
type TurnRequest struct {
	ThreadID string

	// History overrides the checkpointed history when non-empty.
	History   []llm.Message
	UserInput string
}

// TurnResult is the answered turn.
type TurnResult struct {
	Response  string                  `json:"response"`
	Citations []conversation.Citation `json:"citations"`
	Route     conversation.Route      `json:"route"`
	LastNode  conversation.Route      `json:"last_node"`
	Subject   string                  `json:"subject"`
	ThreadID  string                  `json:"thread_id"`
}

// Options wires an Orchestrator. Router, the three handlers and Checkpoints
// are required.
type Options struct {
	Router      Classifier
	Chat        *handlers.Chat
	SubjectInfo *handlers.SubjectInfo
	RAGReview   *handlers.RAGReview

	Candidates  CandidateSource
	Checkpoints *checkpoint.Store
	Events      EventSink
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Orchestrator runs turns. It is safe for concurrent use; turns on the same
// thread are serialized.
type Orchestrator struct {
	router      Classifier
	chat        *handlers.Chat
	subjectInfo *handlers.SubjectInfo
	ragReview   *handlers.RAGReview
	candidates  CandidateSource
	checkpoints *checkpoint.Store
	events      EventSink
	metrics     *metrics.Metrics
	logger      *slog.Logger

	locks *keyedMutex
}

// New validates o and builds an Orchestrator.
func New(o Options) (*Orchestrator, error) {
	switch {
	case o.Router == nil:
		return nil, errors.New("orchestrator requires a router")
	case o.Chat == nil || o.SubjectInfo == nil || o.RAGReview == nil:
		return nil, errors.New("orchestrator requires all three handlers")
	case o.Checkpoints == nil:
		return nil, errors.New("orchestrator requires a checkpoint store")
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Orchestrator{
		router:      o.Router,
		chat:        o.Chat,
		subjectInfo: o.SubjectInfo,
		ragReview:   o.RAGReview,
		candidates:  o.Candidates,
		checkpoints: o.Checkpoints,
		events:      o.Events,
		metrics:     o.Metrics,
		logger:      logger,
		locks:       newKeyedMutex(),
	}, nil
}

// Run executes one turn. A request without a thread id starts a new thread.
// Every returned error is a *TurnError.
func (o *Orchestrator) Run(ctx context.Context, req TurnRequest) (TurnResult, error) {
	start := time.Now()

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	ctx, span := tracer.Start(ctx, "turn", trace.WithAttributes(
		attribute.String("thread_id", threadID),
	))
	defer span.End()

	unlock, err := o.locks.Lock(ctx, threadID)
	if err != nil {
		return TurnResult{}, o.fail(span, threadID, StageThreadLock, err)
	}
	defer unlock()

	cp, err := o.checkpoints.LoadOrEmpty(ctx, threadID)
	if err != nil {
		return TurnResult{}, o.fail(span, threadID, StageCheckpointLoad, err)
	}

	history := req.History
	if len(history) == 0 {
		history = cp.History
	}
	state := conversation.New(history, req.UserInput, cp.Subject)

	state, err = o.route(ctx, state)
	if err != nil {
		return TurnResult{}, o.fail(span, threadID, StageRouter, err)
	}

	selected, err := o.handlerFor(state.Route)
	if err != nil {
		return TurnResult{}, o.fail(span, threadID, StageDispatch, err)
	}
	state, err = o.runNode(ctx, selected, state)
	if err != nil {
		return TurnResult{}, o.fail(span, threadID, string(handlers.Route(selected)), err)
	}

	if state.Route != conversation.RouteChat {
		state, err = o.runNode(ctx, o.chat, state)
		if err != nil {
			return TurnResult{}, o.fail(span, threadID, string(conversation.RouteChat), err)
		}
	}

	saved, err := o.checkpoints.Save(ctx, threadID, state.Transcript(), state.Subject)
	if err != nil {
		return TurnResult{}, o.fail(span, threadID, StageCheckpointSave, err)
	}

	elapsed := time.Since(start)
	o.metrics.ObserveTurn(string(state.Route), elapsed)
	o.publish(state, threadID, saved.Head, elapsed)

	span.SetAttributes(
		attribute.String("route", string(state.Route)),
		attribute.String("last_node", string(state.LastNode)),
		attribute.Int("citations", len(state.Citations)),
	)

	o.logger.Info("turn complete",
		"thread_id", threadID,
		"route", state.Route,
		"last_node", state.LastNode,
		"subject", state.Subject,
		"citations", len(state.Citations),
		"duration", elapsed,
	)

	citations := state.Citations
	if citations == nil {
		citations = []conversation.Citation{}
	}

	return TurnResult{
		Response:  state.Response,
		Citations: citations,
		Route:     state.Route,
		LastNode:  state.LastNode,
		Subject:   state.Subject,
		ThreadID:  threadID,
	}, nil
}

// route runs the router node: a lone candidate pre-seeds an empty subject
// before classification.
func (o *Orchestrator) route(ctx context.Context, state conversation.State) (conversation.State, error) {
	ctx, span := tracer.Start(ctx, "node.router")
	defer span.End()

	var candidates []string
	if o.candidates != nil {
		candidates = o.candidates.Names()
	}
	if state.Subject == "" && len(candidates) == 1 {
		state = state.WithSubject(candidates[0])
	}

	route, subject, err := o.router.Classify(ctx, state, candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	span.SetAttributes(
		attribute.String("route", string(route)),
		attribute.String("subject", subject),
	)
	return state.WithRoute(route).WithSubject(subject), nil
}

// handlerFor maps a route to its handler. A route with no handler is an
// error rather than a silent fallback to chat.
func (o *Orchestrator) handlerFor(route conversation.Route) (handlers.Handler, error) {
	switch route {
	case conversation.RouteSubjectInfo:
		return o.subjectInfo, nil
	case conversation.RouteRAGReview:
		return o.ragReview, nil
	case conversation.RouteChat, conversation.RouteRouter:
		return o.chat, nil
	}
	return nil, fmt.Errorf("no handler for route %q", route)
}

func (o *Orchestrator) runNode(ctx context.Context, h handlers.Handler, state conversation.State) (conversation.State, error) {
	node := handlers.Route(h)

	ctx, span := tracer.Start(ctx, "node."+string(node))
	defer span.End()

	out, err := h.Handle(ctx, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, err
	}

	o.logger.Debug("node finished",
		"node", node,
		"route", out.Route,
		"answered", out.Response != "",
	)
	return out, nil
}

func (o *Orchestrator) publish(state conversation.State, threadID, head string, elapsed time.Duration) {
	if o.events == nil {
		return
	}

	event := eventstream.NewTurnEvent(threadID, state.Route, state.LastNode, state.Subject, len(state.Citations), elapsed)
	event.Head = head

	if err := o.events.Enqueue(event); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, worker.ErrPoolClosed) {
			level = slog.LevelDebug
		}
		o.logger.Log(context.Background(), level, "turn event not published",
			"thread_id", threadID,
			"error", err,
		)
	}
}

func (o *Orchestrator) fail(span trace.Span, threadID, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	o.metrics.TurnFailed(stage)

	o.logger.Error("turn failed",
		"thread_id", threadID,
		"stage", stage,
		"error", err,
	)
	return &TurnError{Stage: stage, Err: err}
}
