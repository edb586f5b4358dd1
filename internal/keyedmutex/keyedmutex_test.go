package keyedmutex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liveclass/pkg/types"
)

func TestDoSerializesSameKey(t *testing.T) {
	m := New(0)

	const workers = 10
	var order []int
	var inFlight, maxInFlight int
	var track sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := m.Do(context.Background(), "room-1/p1", func() error {
				track.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				track.Unlock()

				time.Sleep(time.Millisecond)

				track.Lock()
				inFlight--
				order = append(order, n)
				track.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "critical sections for one key must never overlap")
	assert.Len(t, order, workers)
}

func TestDoDifferentKeysRunConcurrently(t *testing.T) {
	m := New(0)

	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		_ = m.Do(context.Background(), "key-a", func() error {
			close(firstEntered)
			<-releaseFirst
			return nil
		})
	}()

	<-firstEntered

	// A different key must not wait for key-a's critical section.
	done := make(chan error, 1)
	go func() {
		done <- m.Do(context.Background(), "key-b", func() error { return nil })
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("operation on unrelated key blocked")
	}

	close(releaseFirst)
}

func TestDoReleasesOnError(t *testing.T) {
	m := New(0)

	wantErr := errors.New("operation failed")
	err := m.Do(context.Background(), "k", func() error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	// The key must be usable again after a failed operation.
	err = m.Do(context.Background(), "k", func() error { return nil })
	require.NoError(t, err)
}

func TestAcquireTimesOut(t *testing.T) {
	m := New(0)

	release, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx, "k")
	assert.ErrorIs(t, err, types.ErrLockTimeout)

	release()

	// Holder release makes the key available again.
	release2, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release2()
}

func TestDoDefaultTimeout(t *testing.T) {
	m := New(20 * time.Millisecond)

	release, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	start := time.Now()
	err = m.Do(context.Background(), "k", func() error { return nil })
	assert.ErrorIs(t, err, types.ErrLockTimeout)
	assert.Less(t, time.Since(start), time.Second, "default timeout should bound the wait")
}

func TestSecondCallerObservesFirstCallersState(t *testing.T) {
	m := New(0)

	state := 0
	firstRunning := make(chan struct{})
	proceed := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		_ = m.Do(context.Background(), "k", func() error {
			close(firstRunning)
			<-proceed
			state = 1
			return nil
		})
	}()

	<-firstRunning
	go func() {
		defer wg.Done()
		_ = m.Do(context.Background(), "k", func() error {
			assert.Equal(t, 1, state, "second critical section must see first one's writes")
			return nil
		})
	}()

	// Give the second caller time to block on the key before releasing.
	time.Sleep(10 * time.Millisecond)
	close(proceed)
	wg.Wait()
}

func TestIdleKeysAreRemoved(t *testing.T) {
	m := New(0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(context.Background(), "k", func() error { return nil })
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, m.Len(), "released keys must not leak")
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := New(0)

	release, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)

	release()
	release() // second call must be a no-op, not a double-unlock

	release2, err := m.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release2()
	assert.Equal(t, 0, m.Len())
}
