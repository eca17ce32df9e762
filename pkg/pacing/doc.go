// Package pacing provides the fixed waits used between mirror attempts and
// between accounts.
//
// Both waits are plain timers: they never grow, shrink or add jitter. A wait
// ends early only when its context is cancelled, which is how an interrupt
// stops a run between requests.
//
// Usage:
//
//	var s pacing.Sleeper = pacing.Timer{}
//	if err := s.Sleep(ctx, 5*time.Second); err != nil {
//	    // context cancelled, stop the run
//	}
//
// Tests substitute a Recorder to count waits without sleeping.
package pacing
