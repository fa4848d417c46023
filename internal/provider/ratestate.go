package provider

import (
	"sync"
	"time"
)

// RateState tracks calls used inside the current rate-limit window for
// one provider. It is the only shared mutable state between concurrent
// fetches, so all access goes through the mutex. The counter resets on
// window rollover.
type RateState struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	used        int
	windowStart time.Time
	now         func() time.Time
}

// NewRateState creates a window counter of limit calls per window.
func NewRateState(limit int, window time.Duration) *RateState {
	return &RateState{
		limit:       limit,
		window:      window,
		windowStart: time.Now(),
		now:         time.Now,
	}
}

// Acquire consumes one call from the window. Returns false when the
// window is exhausted; the caller should fail over or skip the cycle.
func (r *RateState) Acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollover()
	if r.used >= r.limit {
		return false
	}
	r.used++
	return true
}

// Remaining returns calls left in the current window.
func (r *RateState) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollover()
	left := r.limit - r.used
	if left < 0 {
		return 0
	}
	return left
}

func (r *RateState) rollover() {
	now := r.now()
	if now.Sub(r.windowStart) >= r.window {
		r.used = 0
		r.windowStart = now
	}
}
