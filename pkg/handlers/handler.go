// Package handlers implements the three response strategies a turn can be
// routed to.
package handlers

import (
	"context"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
)

const (
	// DefaultTemperature is used for answer generation when a handler's
	// Temperature is left at zero.
	DefaultTemperature = 0.3

	// DefaultTimeout bounds each external call a handler makes.
	DefaultTimeout = 30 * time.Second
)

// Handler is the closed set of response strategies: *Chat, *SubjectInfo and
// *RAGReview. Each takes a State and returns a new one with Response set.
type Handler interface {
	Handle(ctx context.Context, state conversation.State) (conversation.State, error)

	route() conversation.Route
}

// Route reports the node h implements.
func Route(h Handler) conversation.Route {
	return h.route()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func temperature(t float64) float64 {
	if t == 0 {
		return DefaultTemperature
	}
	return t
}
