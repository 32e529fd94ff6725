// Package limiter bounds how many board transfers (imports and image
// uploads) run at once.
//
// Slots are a buffered channel used as a semaphore. When every slot is taken
// a caller waits up to maxWait before failing with ErrBusy. Drain blocks
// until running transfers finish and is used during shutdown.
package limiter

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrBusy is returned when no slot frees up within the wait time.
var ErrBusy = errors.New("too many transfers in progress, please try again later")

// Defaults applied by New for non-positive arguments.
const (
	DefaultMaxConcurrent = 2
	DefaultMaxWait       = 10 * time.Second
)

// Limiter is a counting semaphore with a bounded wait.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// New creates a limiter allowing maxConcurrent holders at once.
func New(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. Each successful Acquire
// must be paired with one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of held slots.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the maximum number of holders.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// Drain blocks until no slot is held or ctx ends.
func (l *Limiter) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
