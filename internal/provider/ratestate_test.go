package provider

import (
	"sync"
	"testing"
	"time"
)

func TestRateStateAcquireUntilExhausted(t *testing.T) {
	rs := NewRateState(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rs.Acquire() {
			t.Fatalf("acquire %d should succeed", i)
		}
	}
	if rs.Acquire() {
		t.Fatalf("acquire past limit should fail")
	}
	if got := rs.Remaining(); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
}

func TestRateStateWindowRollover(t *testing.T) {
	rs := NewRateState(1, time.Minute)
	base := time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC)
	current := base
	rs.now = func() time.Time { return current }
	rs.windowStart = base

	if !rs.Acquire() {
		t.Fatalf("first acquire should succeed")
	}
	if rs.Acquire() {
		t.Fatalf("second acquire should fail inside window")
	}

	current = base.Add(61 * time.Second)
	if !rs.Acquire() {
		t.Fatalf("acquire should succeed after rollover")
	}
}

func TestRateStateConcurrentAcquire(t *testing.T) {
	rs := NewRateState(50, time.Minute)

	var wg sync.WaitGroup
	granted := make(chan struct{}, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rs.Acquire() {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	if count != 50 {
		t.Fatalf("granted = %d, want exactly 50", count)
	}
}
