package core

import "context"

// StreamLimiter bounds the number of concurrently live turns. The zero
// capacity means unlimited.
type StreamLimiter struct {
	sem chan struct{}
}

// NewStreamLimiter creates a limiter admitting at most capacity concurrent
// turns. If capacity == 0, every acquire succeeds immediately.
func NewStreamLimiter(capacity int) *StreamLimiter {
	l := &StreamLimiter{}
	if capacity > 0 {
		l.sem = make(chan struct{}, capacity)
	}
	return l
}

// Acquire blocks until a slot frees or ctx ends, returning the ctx error in
// the latter case.
func (l *StreamLimiter) Acquire(ctx context.Context) error {
	if l.sem == nil {
		return nil
	}
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking and reports whether it succeeded.
func (l *StreamLimiter) TryAcquire() bool {
	if l.sem == nil {
		return true
	}
	select {
	case l.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a previously acquired slot. Releasing without a matching
// acquire is a no-op.
func (l *StreamLimiter) Release() {
	if l.sem == nil {
		return
	}
	select {
	case <-l.sem:
	default:
	}
}

// Active returns the number of slots currently held.
func (l *StreamLimiter) Active() int {
	if l.sem == nil {
		return 0
	}
	return len(l.sem)
}

// Capacity returns the configured limit (0 = unlimited).
func (l *StreamLimiter) Capacity() int {
	if l.sem == nil {
		return 0
	}
	return cap(l.sem)
}
