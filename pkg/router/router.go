// Package router classifies a user turn into one of the handler routes and
// resolves which restaurant it is about.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/llm"
)

const (
	DefaultHistoryWindow = 10
	DefaultTimeout       = 30 * time.Second

	noCandidates = "(none)"
)

const systemPrompt = `You route messages for a restaurant review assistant.
Pick exactly one route:
- chat: greetings, small talk, thanks, or questions that need neither restaurant facts nor reviews.
- subject_info: factual questions about a restaurant such as address, hours, menu, prices or parking.
- rag_review: questions answered by customer reviews such as taste, portions, service, atmosphere, waiting time or whether it is worth visiting.

Also name the restaurant the user is talking about, chosen from the candidates, or null if none applies.
Answer with one line and nothing else:
route=<chat|subject_info|rag_review>; subject=<candidate name|null>`

// Options configures a Router.
type Options struct {
	Generator llm.Generator

	// Timeout bounds the classification call. Zero means DefaultTimeout.
	Timeout time.Duration

	// HistoryWindow is how many recent messages the classifier sees.
	HistoryWindow int

	// Aliases extends subject matching with alternate names.
	Aliases AliasSource

	// OnParse observes every parsed classification.
	OnParse func(Classification)

	Logger *slog.Logger
}

// Router is the turn classifier.
type Router struct {
	generator     llm.Generator
	timeout       time.Duration
	historyWindow int
	aliases       AliasSource
	onParse       func(Classification)
	logger        *slog.Logger
}

// New builds a Router.
func New(o Options) *Router {
	r := &Router{
		generator:     o.Generator,
		timeout:       o.Timeout,
		historyWindow: o.HistoryWindow,
		aliases:       o.Aliases,
		onParse:       o.OnParse,
		logger:        o.Logger,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.historyWindow <= 0 {
		r.historyWindow = DefaultHistoryWindow
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Classify asks the generator once, at temperature 0, for a route and
// subject. Malformed output falls back to chat; only a generator failure is
// returned as an error.
func (r *Router) Classify(ctx context.Context, state conversation.State, candidates []string) (conversation.Route, string, error) {
	msgs := r.prompt(state, candidates)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.generator.Generate(callCtx, msgs, 0)
	if err != nil {
		return "", "", fmt.Errorf("classifying turn: %w", err)
	}

	c := ParseClassification(raw)
	if r.onParse != nil {
		r.onParse(c)
	}

	route := conversation.RouteChat
	if c.Kind == Ok {
		route = c.Route
	} else {
		r.logger.Warn("unparseable classification, falling back to chat", "raw", raw)
	}

	subject := ResolveSubject(c.Subject, state.UserInput, candidates, r.aliases, state.Subject)

	r.logger.Debug("classified turn",
		"route", route,
		"subject", subject,
		"extracted_subject", c.Subject,
		"tier", c.Tier,
	)
	return route, subject, nil
}

func (r *Router) prompt(state conversation.State, candidates []string) []llm.Message {
	var b strings.Builder

	b.WriteString("Candidates: ")
	if len(candidates) == 0 {
		b.WriteString(noCandidates)
	} else {
		b.WriteString(strings.Join(candidates, ", "))
	}
	b.WriteString("\n")

	if state.Subject != "" {
		fmt.Fprintf(&b, "Current restaurant: %s\n", state.Subject)
	}

	history := llm.NonEmpty(state.History)
	if len(history) > r.historyWindow {
		history = history[len(history)-r.historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	fmt.Fprintf(&b, "\nUser message: %s\n", state.UserInput)
	b.WriteString("\nAnswer format: route=<route>; subject=<subject|null>")

	return []llm.Message{
		llm.System(systemPrompt),
		llm.User(b.String()),
	}
}
