package core

// submit_limiter.go caps how many cleaning requests the process sends at
// once. Sessions are isolated from each other, but they share one outbound
// path to the service; the limiter keeps a burst of sessions from opening
// an unbounded number of uploads. When all slots are taken, a submission
// waits up to maxWait before failing with ErrTooManySubmissions.
//
// WaitForDrain blocks until every outstanding submission has finished, for
// graceful shutdown.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentSubmissions is the default limit for parallel calls.
const DefaultMaxConcurrentSubmissions = 4

// DefaultMaxSubmitWait is how long to wait for a slot before rejecting.
const DefaultMaxSubmitWait = 10 * time.Second

// SubmitLimiter controls concurrent outbound cleaning calls with a semaphore.
type SubmitLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewSubmitLimiter creates a limiter that allows at most maxConcurrent
// simultaneous calls. Callers that cannot get a slot within maxWait receive
// ErrTooManySubmissions.
func NewSubmitLimiter(maxConcurrent int, maxWait time.Duration) *SubmitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubmissions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxSubmitWait
	}

	return &SubmitLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot.
// The caller MUST call Release() when the call completes (use defer).
func (l *SubmitLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManySubmissions
	}
}

// TryAcquire takes a slot without blocking and reports whether it did.
func (l *SubmitLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *SubmitLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of calls holding a slot.
func (l *SubmitLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *SubmitLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *SubmitLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no call holds a slot or ctx is done.
func (l *SubmitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubmitLimiterStatus is a snapshot of the limiter for monitoring.
type SubmitLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *SubmitLimiter) Status() SubmitLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return SubmitLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
