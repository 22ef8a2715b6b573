package pipeline

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum spacing between portal requests across all
// workers. One shared timestamp, not a per-worker budget: the portal sees
// the process as a single client, so the spacing must be global.
type Limiter struct {
	mu    sync.Mutex
	next  time.Time
	delay time.Duration
}

func NewLimiter(delay time.Duration) *Limiter {
	return &Limiter{delay: delay}
}

// Wait blocks until this caller's reserved slot arrives or ctx is done.
// Concurrent callers each reserve the next free slot under the lock, so
// N workers arriving together leave spaced N*delay apart.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.delay)
	l.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
