package participant

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrRateLimited is returned when a participant's sliding-window budget is
// exhausted. The failed call is not recorded against the window.
var ErrRateLimited = errors.New("participant rate limit exceeded")

// slidingWindow counts calls per key over a trailing window. It owns its own
// lock, independent of any scheduler lock, since a participant may be shared
// across schedulers.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	calls  map[string][]time.Time
	now    func() time.Time
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	return &slidingWindow{
		window: window,
		calls:  map[string][]time.Time{},
		now:    time.Now,
	}
}

// allow records one call under key if fewer than limit calls happened inside
// the window, otherwise fails without recording anything.
func (w *slidingWindow) allow(key string, limit int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	recent := w.calls[key][:0]
	for _, t := range w.calls[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= limit {
		w.calls[key] = recent
		return fmt.Errorf("%w: %d calls in %s for %s", ErrRateLimited, len(recent), w.window, key)
	}

	w.calls[key] = append(recent, now)
	return nil
}

func (w *slidingWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = map[string][]time.Time{}
}

// effectiveLimit scales the base budget by trust, floored at a quarter of the
// base so distrusted nodes still get reviewed.
func effectiveLimit(baseLimit int, trust float64) int {
	return int(math.Ceil(float64(baseLimit) * math.Max(0.25, trust)))
}
