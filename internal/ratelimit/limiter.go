package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per provider, sized from the provider's
// declared budget. It is the single shared gate between interactive
// resolutions and the bulk scheduler, so all methods are concurrency-safe.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New() *Limiter {
	return &Limiter{limiters: make(map[string]*rate.Limiter)}
}

// Register declares a provider's budget: n requests per window. Calling it
// again replaces the bucket (budget changes take effect on next acquire).
func (l *Limiter) Register(provider string, n int, window time.Duration) {
	if n <= 0 || window <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[provider] = rate.NewLimiter(rate.Limit(float64(n)/window.Seconds()), n)
}

// TryAcquire consumes one request from the provider's budget if available.
// On denial it returns the earliest time a request could go through; the
// caller records the provider as rate-limited rather than waiting.
// Providers with no registered budget are always allowed.
func (l *Limiter) TryAcquire(provider string) (bool, time.Time) {
	l.mu.Lock()
	lim, ok := l.limiters[provider]
	l.mu.Unlock()
	if !ok {
		return true, time.Time{}
	}

	r := lim.Reserve()
	if !r.OK() {
		return false, time.Now().Add(time.Hour)
	}
	delay := r.Delay()
	if delay == 0 {
		return true, time.Time{}
	}
	// Budget exhausted for now; give the token back and report when to retry.
	r.Cancel()
	return false, time.Now().Add(delay)
}
