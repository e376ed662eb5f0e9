// Package ratelimit provides per-client token-bucket admission control.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits or rejects a request for a client key. Implementations
// must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps one token bucket per client key in process memory.
// Each bucket refills continuously at `rate` tokens per second up to
// `burst`; an admitted request consumes one token. Buckets idle longer
// than the TTL are swept on the next call that touches the map.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter creates an in-memory limiter. r is the refill rate in
// tokens per second, burst the bucket capacity, idleTTL how long an
// unused bucket survives before eviction.
func NewMemoryLimiter(r float64, burst int, idleTTL time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   rate.Limit(r),
		burst:   burst,
		ttl:     idleTTL,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow reports whether the request for key is admitted. The error
// return exists to satisfy Limiter; it is always nil here.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	for k, v := range l.buckets {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.buckets, k)
		}
	}
	l.mu.Unlock()

	// Admission happens outside the map lock; rate.Limiter carries its
	// own per-bucket mutex, so concurrent requests only contend when
	// they share a key.
	return b.lim.AllowN(now, 1), nil
}

// Len returns the number of live buckets
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
