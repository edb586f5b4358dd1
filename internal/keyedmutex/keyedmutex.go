// Package keyedmutex serializes critical sections that share a string key.
// Operations on unrelated keys never contend. Idle keys are removed from the
// internal map so the mutex does not grow with the lifetime of the process.
package keyedmutex

import (
	"context"
	"sync"
	"time"

	"liveclass/pkg/types"
)

// KeyedMutex guarantees at most one in-flight critical section per key.
// A caller arriving while a key is held waits until the holder fully
// completes, then observes the state the holder left behind.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry

	// defaultTimeout bounds Do when the caller's context has no deadline.
	// Zero means wait as long as the context allows.
	defaultTimeout time.Duration
}

// entry tracks the lock channel and the number of holders plus waiters.
// The entry is dropped from the map only when refs reaches zero, so a
// blocked waiter always contends on the same channel as the holder.
type entry struct {
	ch   chan struct{}
	refs int
}

// New creates a keyed mutex. defaultTimeout bounds lock acquisition inside
// Do for contexts without their own deadline; pass zero to disable.
func New(defaultTimeout time.Duration) *KeyedMutex {
	return &KeyedMutex{
		entries:        make(map[string]*entry),
		defaultTimeout: defaultTimeout,
	}
}

// Acquire blocks until the key is available or ctx is done. On success it
// returns a release function that must be called exactly once; on failure it
// returns types.ErrLockTimeout.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { m.release(key, e) })
		}, nil
	case <-ctx.Done():
		m.drop(key, e)
		return nil, types.ErrLockTimeout
	}
}

// Do runs fn while holding the key, releasing on every exit path. When the
// mutex was built with a default timeout and ctx carries no deadline, the
// acquisition wait is bounded by that timeout.
func (m *KeyedMutex) Do(ctx context.Context, key string, fn func() error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && m.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.defaultTimeout)
		defer cancel()
	}

	release, err := m.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	return fn()
}

// Len reports the number of keys currently held or waited on.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *KeyedMutex) release(key string, e *entry) {
	<-e.ch
	m.drop(key, e)
}

func (m *KeyedMutex) drop(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}
