// Package worker provides an asynchronous worker pool that publishes turn
// events off the request path.
//
// The pool decouples event publishing from the turn API so a slow or
// unreachable event stream never delays an answer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/eventstream"
	"github.com/papercomputeco/tabletalk/pkg/metrics"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

var (
	// ErrQueueFull is returned by Enqueue when the job was dropped.
	ErrQueueFull = errors.New("worker queue full")

	// ErrPoolClosed is returned by Enqueue after Close.
	ErrPoolClosed = errors.New("worker pool closed")
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every enqueued event.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each publish call.
	PublishTimeout time.Duration

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Pool publishes turn events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.TurnEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.TurnEvent, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits an event for publishing. It never blocks: a full queue
// drops the event and returns ErrQueueFull.
func (p *Pool) Enqueue(event *eventstream.TurnEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("turn event queued",
			"event_id", event.ID,
			"thread_id", event.ThreadID,
		)
		return nil
	default:
		p.config.Metrics.TurnEvent(metrics.EventDropped)
		p.logger.Error("turn event not queued, queue full, event dropped",
			"event_id", event.ID,
			"thread_id", event.ThreadID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for in-flight events to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// publish errors are logged and counted, never retried.
func (p *Pool) publish(event *eventstream.TurnEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishTurn(ctx, event); err != nil {
		p.config.Metrics.TurnEvent(metrics.EventFailed)
		p.logger.Warn("turn event publish failed",
			"event_id", event.ID,
			"thread_id", event.ThreadID,
			"error", err,
		)
		return
	}

	p.config.Metrics.TurnEvent(metrics.EventPublished)
	p.logger.Debug("turn event published", "event_id", event.ID)
}
