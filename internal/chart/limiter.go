package chart

// limiter.go bounds how many render cycles run at once across all sessions.
// A cycle that cannot get a slot within the wait time fails with
// ErrRenderBusy instead of queueing forever.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrRenderBusy is returned when every render slot stayed taken for the
// whole wait time.
var ErrRenderBusy = errors.New("too many charts rendering, please try again shortly")

const (
	DefaultMaxConcurrentRenders = 4
	DefaultRenderWait           = 10 * time.Second
)

// Limiter is a counting semaphore for render cycles.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter allows maxConcurrent cycles at once, each waiting up to maxWait
// for a slot. Non-positive values pick the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRenders
	}
	if maxWait <= 0 {
		maxWait = DefaultRenderWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it.
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
		return ErrRenderBusy
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// InUse returns the number of running cycles.
func (l *Limiter) InUse() int { return int(l.active.Load()) }

// Available returns the number of free slots.
func (l *Limiter) Available() int { return cap(l.slots) - len(l.slots) }

// Capacity returns the slot count.
func (l *Limiter) Capacity() int { return cap(l.slots) }

// LimiterStatus is a monitoring snapshot.
type LimiterStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	Capacity  int `json:"capacity"`
}

// Status returns the current state.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{Active: l.InUse(), Available: l.Available(), Capacity: l.Capacity()}
}

// WaitForDrain blocks until no cycle is running or ctx ends. Used on
// shutdown.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.InUse() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
