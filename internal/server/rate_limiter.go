package server

import (
	"sync"
	"time"

	"github.com/smallbiznis/opsdesk/internal/clock"
)

// rateLimiter counts requests per key in fixed windows. A non-positive limit
// disables it.
type rateLimiter struct {
	limit  int
	window time.Duration
	clock  clock.Clock

	mu    sync.Mutex
	items map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration, clk clock.Clock) *rateLimiter {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		clock:  clk,
		items:  make(map[string]*rateLimitEntry),
	}
}

// Allow records one request for key. When the window is exhausted it returns
// false and the time left until the window resets.
func (r *rateLimiter) Allow(key string) (bool, time.Duration) {
	if r == nil || r.limit <= 0 {
		return true, 0
	}
	if key == "" {
		return false, r.window
	}

	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.items[key]
	if entry == nil || now.Sub(entry.windowStart) >= r.window {
		entry = &rateLimitEntry{windowStart: now}
		r.items[key] = entry
		r.sweepLocked(now)
	}

	if entry.count >= r.limit {
		return false, entry.windowStart.Add(r.window).Sub(now)
	}

	entry.count++
	return true, 0
}

// sweepLocked drops windows that ended so idle keys do not accumulate.
func (r *rateLimiter) sweepLocked(now time.Time) {
	for key, entry := range r.items {
		if now.Sub(entry.windowStart) >= r.window {
			delete(r.items, key)
		}
	}
}
