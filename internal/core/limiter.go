// limiter.go bounds the number of uploads running at once. Each upload owns
// an engine connection and streams an entire file, so an unbounded intake
// would let one burst of requests exhaust connections and memory.
package core

import (
	"context"
	"sync"
	"time"
)

// UploadLimiter is a counting semaphore over upload slots. A caller either
// gets a slot within the configured wait or fails fast with
// ErrTooManyUploads; queued work never piles up invisibly.
type UploadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// LimiterStatus is a point-in-time snapshot for logging and health output.
type LimiterStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	Max       int `json:"max"`
}

// NewUploadLimiter returns a limiter admitting at most maxConcurrent uploads,
// with acquirers waiting up to maxWait for a slot. Non-positive arguments
// fall back to 1 slot and a 30 second wait.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	return &UploadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire claims an upload slot, waiting up to the limiter's maxWait. It
// returns ErrTooManyUploads when the wait expires and the context error
// when ctx ends first. Every successful Acquire must be paired with Release.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-timer.C:
		return ErrTooManyUploads
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire claims a slot only if one is free right now.
func (l *UploadLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a slot. Calling it without a matching Acquire is a
// programming error and is ignored rather than corrupting the count.
func (l *UploadLimiter) Release() {
	select {
	case <-l.slots:
		l.mu.Lock()
		if l.active > 0 {
			l.active--
		}
		l.mu.Unlock()
	default:
	}
}

// Active reports how many uploads hold a slot.
func (l *UploadLimiter) Active() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Status snapshots the limiter.
func (l *UploadLimiter) Status() LimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()
	return LimiterStatus{
		Active:    active,
		Available: cap(l.slots) - active,
		Max:       cap(l.slots),
	}
}

// WaitForDrain blocks until no uploads hold a slot or ctx ends. Used during
// shutdown so in-flight uploads finish before connections close.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
