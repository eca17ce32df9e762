package pacing

import (
	"context"
	"sync"
	"time"
)

// Sleeper suspends the caller for a fixed duration
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case
	Sleep(ctx context.Context, d time.Duration) error
}

// Timer is the real-clock Sleeper
type Timer struct{}

// Sleep waits for d using Wait
func (Timer) Sleep(ctx context.Context, d time.Duration) error {
	return Wait(ctx, d)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder is a Sleeper that records requested waits without blocking
type Recorder struct {
	mu    sync.Mutex
	calls []time.Duration
	// OnSleep, if set, runs on every call; its error is returned to the caller
	OnSleep func(call int, d time.Duration) error
}

// Sleep records d and returns immediately
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	n := len(r.calls)
	hook := r.OnSleep
	r.mu.Unlock()

	if hook != nil {
		if err := hook(n, d); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Calls returns every recorded duration in call order
func (r *Recorder) Calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]time.Duration, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Count returns how many times d was requested
func (r *Recorder) Count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == d {
			n++
		}
	}
	return n
}
