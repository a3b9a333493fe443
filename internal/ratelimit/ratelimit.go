// Package ratelimit implements a lightweight, in-memory, token-bucket rate
// limiter with per-identity buckets and opportunistic garbage collection.
//
// It backs both the HTTP middleware (keyed by client IP) and the /feedback
// command (keyed by platform user id).
//
// Notes:
//   - The limiter is process-local. A horizontally scaled deployment needs a
//     shared limiter to enforce global limits.
//   - It is intended for abuse control, not authorization.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds a single rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed is a per-key token-bucket limiter. Buckets are created on demand and
// idle buckets are evicted after a TTL during lookups.
//
// This type is safe for concurrent use.
type Keyed struct {
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
	gcEvery  uint64
}

// New constructs a Keyed limiter.
//
//   - rps:   tokens replenished per second (0 allows only the initial burst).
//   - burst: maximum burst size; values <= 0 are coerced to 1.
func New(rps float64, burst int) *Keyed {
	if burst <= 0 {
		burst = 1
	}
	return &Keyed{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
		gcEvery:  5000,
	}
}

// Allow reports whether one event for key may happen now.
func (k *Keyed) Allow(key string) bool {
	return k.limiter(key).Allow()
}

// Len returns the number of live buckets.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.visitors)
}

// limiter returns (and touches) the bucket for key, creating it if absent.
// Garbage collection runs before the lookup so a stale bucket can be evicted
// even when it is the one being fetched.
func (k *Keyed) limiter(key string) *rate.Limiter {
	now := time.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	k.cleanupN++
	if k.cleanupN >= k.gcEvery {
		for key, v := range k.visitors {
			if now.Sub(v.lastSeen) >= k.ttl {
				delete(k.visitors, key)
			}
		}
		k.cleanupN = 0
	}

	if v, ok := k.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(k.rps, k.burst)
	k.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}
