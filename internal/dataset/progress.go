package dataset

import "golang.org/x/time/rate"

// ProgressReporter receives progress updates during long batch stages.
type ProgressReporter interface {
	// OnProgress is called with the number of completed units and the total.
	OnProgress(done, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(done, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(done, total int) {
	f(done, total)
}

// throttled drops intermediate progress updates beyond a rate limit so that
// a fast worker pool cannot flood the reporter. The final update is always
// delivered.
type throttled struct {
	inner ProgressReporter
	lim   *rate.Limiter
}

// Throttle wraps a reporter with a per-second update limit.
func Throttle(r ProgressReporter, perSecond float64) ProgressReporter {
	return &throttled{inner: r, lim: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// OnProgress implements ProgressReporter.
func (t *throttled) OnProgress(done, total int) {
	if done >= total || t.lim.Allow() {
		t.inner.OnProgress(done, total)
	}
}
