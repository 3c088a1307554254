package tour

import (
	"context"
	"time"
)

// WaitFor polls predicate at interval until it returns true, the timeout
// elapses, or the context is cancelled. It reports whether the predicate
// was satisfied. A panicking predicate counts as false for that tick.
//
// This is the standalone form of the runner's completion watcher, for
// callers outside a run (warm-up checks, CLI helpers, tests).
func WaitFor(ctx context.Context, predicate func() bool, interval, timeout time.Duration) bool {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if safePredicate(predicate) {
				return true
			}
			if timeout > 0 && time.Now().After(deadline) {
				return false
			}
		}
	}
}

// waitFor is the runner-integrated completion watcher: every poll tick runs
// on a tracked timer so Stop cancels the wait mid-poll, and onDone reports
// whether the predicate was satisfied before the bound.
func (r *Runner) waitFor(gen uint64, step Step, onDone func(satisfied bool)) {
	timeout := step.WaitTimeout
	if timeout <= 0 {
		timeout = r.cfg.WaitTimeout
	}
	deadline := time.Now().Add(timeout)

	var tick func()
	tick = func() {
		if safePredicate(step.WaitFor) {
			onDone(true)
			return
		}
		if time.Now().After(deadline) {
			onDone(false)
			return
		}
		r.schedule(gen, r.cfg.PollInterval, tick)
	}
	r.schedule(gen, r.cfg.PollInterval, tick)
}

func safePredicate(predicate func() bool) (ok bool) {
	if predicate == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return predicate()
}
