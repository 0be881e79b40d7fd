package worker_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/eventstream"
	"github.com/papercomputeco/tabletalk/pkg/eventstream/nop"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/worker"
)

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []string
}

func (b *blockingPublisher) PublishTurn(ctx context.Context, e *eventstream.TurnEvent) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	b.seen = append(b.seen, e.ID)
	b.mu.Unlock()
	return nil
}

func (b *blockingPublisher) Close() error { return nil }

type failingPublisher struct{}

func (failingPublisher) PublishTurn(context.Context, *eventstream.TurnEvent) error {
	return errors.New("broker down")
}
func (failingPublisher) Close() error { return nil }

func testEvent() *eventstream.TurnEvent {
	return eventstream.NewTurnEvent("t1", conversation.RouteChat, conversation.RouteChat, "", 0, 0)
}

var _ = Describe("Worker Pool", func() {
	It("requires a publisher", func() {
		_, err := worker.NewPool(&worker.Config{Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
	})

	It("publishes every enqueued event before Close returns", func() {
		pub := nop.NewPublisher()
		wp, err := worker.NewPool(&worker.Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		for range 10 {
			Expect(wp.Enqueue(testEvent())).To(Succeed())
		}
		wp.Close()

		Expect(pub.Published()).To(BeEquivalentTo(10))
	})

	It("rejects nil events", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: nop.NewPublisher(), Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(wp.Enqueue(nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("drops events when the queue is full", func() {
		pub := &blockingPublisher{release: make(chan struct{})}
		wp, err := worker.NewPool(&worker.Config{
			Publisher:  pub,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		// one event held by the worker, one in the buffer, then overflow
		var full error
		for range 5 {
			if err := wp.Enqueue(testEvent()); err != nil {
				full = err
			}
		}
		Expect(full).To(MatchError(worker.ErrQueueFull))

		close(pub.release)
		wp.Close()
	})

	It("keeps running when publishing fails", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: failingPublisher{}, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(testEvent())).To(Succeed())
		Expect(wp.Enqueue(testEvent())).To(Succeed())
		wp.Close()
	})

	It("refuses events after Close", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: nop.NewPublisher(), Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		wp.Close()
		wp.Close()

		Expect(wp.Enqueue(testEvent())).To(MatchError(worker.ErrPoolClosed))
	})
})
