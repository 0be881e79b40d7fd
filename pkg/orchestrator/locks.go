package orchestrator

import (
	"context"
	"sync"
)

// keyedMutex serializes work per key. Entries are dropped once nobody holds
// or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

// refMutex is a one-slot semaphore so waiters can give up on cancellation.
type refMutex struct {
	slot chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free or ctx is done. On success it returns the
// unlock func; otherwise ctx.Err().
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{slot: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.slot <- struct{}{}:
	case <-ctx.Done():
		k.release(key, m)
		return nil, ctx.Err()
	}

	return func() {
		<-m.slot
		k.release(key, m)
	}, nil
}

func (k *keyedMutex) release(key string, m *refMutex) {
	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

func (k *keyedMutex) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
