package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("keyedMutex", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("excludes holders of the same key", func() {
		k := newKeyedMutex()
		var inside, peak atomic.Int32

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				unlock, err := k.Lock(ctx, "t1")
				Expect(err).NotTo(HaveOccurred())
				n := inside.Add(1)
				if n > peak.Load() {
					peak.Store(n)
				}
				inside.Add(-1)
				unlock()
			}()
		}
		wg.Wait()

		Expect(peak.Load()).To(BeEquivalentTo(1))
		Expect(k.len()).To(BeZero())
	})

	It("does not block other keys", func() {
		k := newKeyedMutex()
		unlockA, err := k.Lock(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		defer unlockA()

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			unlock, err := k.Lock(ctx, "b")
			Expect(err).NotTo(HaveOccurred())
			unlock()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("stops waiting when the context is done", func() {
		k := newKeyedMutex()
		unlock, err := k.Lock(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = k.Lock(waitCtx, "t1")
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(k.len()).To(Equal(1))

		unlock()
		Expect(k.len()).To(BeZero())

		again, err := k.Lock(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		again()
	})
})
