package limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	l := New(2, time.Second)
	ctx := context.Background()

	assert.Equal(t, 2, l.Capacity())
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.Active())

	l.Release()
	assert.Equal(t, 1, l.Active())
	l.Release()
	assert.Equal(t, 0, l.Active())
}

func TestAcquire_BusyAfterWait(t *testing.T) {
	l := New(1, 20*time.Millisecond)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	start := time.Now()
	err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l := New(1, time.Minute)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.Canceled)
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	l := New(1, time.Second)
	require.NoError(t, l.Acquire(context.Background()))

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Release()
	}()
	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
}

func TestConcurrentHoldersNeverExceedCapacity(t *testing.T) {
	l := New(3, time.Second)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		current int
		peak    int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			current++
			peak = max(peak, current)
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			current--
			mu.Unlock()
			l.Release()
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak, 3)
	assert.Equal(t, 0, l.Active())
}

func TestDrain(t *testing.T) {
	l := New(1, time.Second)
	require.NoError(t, l.Drain(context.Background()))

	require.NoError(t, l.Acquire(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Drain(ctx), context.DeadlineExceeded)

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Release()
	}()
	require.NoError(t, l.Drain(context.Background()))
}

func TestNew_Defaults(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, DefaultMaxConcurrent, l.Capacity())
	assert.Equal(t, DefaultMaxWait, l.maxWait)
}
