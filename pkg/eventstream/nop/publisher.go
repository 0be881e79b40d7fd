// Package nop provides an eventstream publisher that discards events.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/tabletalk/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
// It only counts what it was handed.
type Publisher struct {
	published atomic.Int64
}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn validates input and otherwise does nothing.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.published.Add(1)
	return nil
}

// Published returns the number of events accepted so far.
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
