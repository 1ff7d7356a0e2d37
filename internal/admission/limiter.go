// Package admission guards the engine's front door: authentication
// context, subject ownership, per-user rate limiting, and the pre-flight
// balance check all run before any judge is dispatched.
package admission

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// idleExpiry is how long an untouched per-user limiter survives before
// the sweep removes it. Keeps the map bounded without an external TTL
// store.
const idleExpiry = 10 * time.Minute

// userLimiter pairs a token bucket with its last-touch time for expiry.
type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter implements ports.RateLimiter with one token bucket per
// key. Buckets refill at the configured rate and idle buckets are swept
// so the map does not grow with every user ever seen.
type UserRateLimiter struct {
	mu       sync.Mutex
	users    map[string]*userLimiter
	limit    rate.Limit
	burst    int
	lastSweep time.Time
	now      func() time.Time
}

var _ ports.RateLimiter = (*UserRateLimiter)(nil)

// NewUserRateLimiter allows `requests` admissions per `window` for each
// key, with bursts up to `requests`.
func NewUserRateLimiter(requests int, window time.Duration) *UserRateLimiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &UserRateLimiter{
		users: make(map[string]*userLimiter),
		limit: rate.Limit(float64(requests) / window.Seconds()),
		burst: requests,
		now:   time.Now,
	}
}

// Check implements ports.RateLimiter. A denied decision carries the wait
// until the bucket next has a token, rounded up to a whole second so the
// caller can surface it directly as retryAfter.
func (l *UserRateLimiter) Check(_ context.Context, key string) (ports.RateLimitDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	ul, ok := l.users[key]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.users[key] = ul
	}
	ul.lastSeen = now

	res := ul.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay == 0 {
		return ports.RateLimitDecision{Allowed: true}, nil
	}

	// Denied: give the token back so the reservation does not consume
	// future capacity while the caller backs off.
	res.CancelAt(now)
	retryAfter := delay.Truncate(time.Second)
	if retryAfter < delay {
		retryAfter += time.Second
	}
	return ports.RateLimitDecision{Allowed: false, RetryAfter: retryAfter}, nil
}

// sweep drops idle entries. Runs at most once per idleExpiry and is
// called with the mutex held.
func (l *UserRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleExpiry {
		return
	}
	l.lastSweep = now
	for key, ul := range l.users {
		if now.Sub(ul.lastSeen) >= idleExpiry {
			delete(l.users, key)
		}
	}
}
