// Package ratelimit meters coach chat requests per account.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy is a token bucket: PerMinute refill with Burst capacity.
type Policy struct {
	PerMinute int
	Burst     int
}

func (p Policy) normalized() Policy {
	if p.PerMinute <= 0 {
		p.PerMinute = 1
	}
	if p.Burst <= 0 {
		p.Burst = 1
	}
	return p
}

// idleTTL is how long an unused bucket is kept before it is dropped.
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local keeps one x/time/rate limiter per key in process memory.
type Local struct {
	mu      sync.Mutex
	policy  Policy
	buckets map[string]*bucket
	now     func() time.Time
}

// NewLocal creates an in-process limiter.
func NewLocal(policy Policy) *Local {
	return &Local{
		policy:  policy.normalized(),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (l *Local) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		every := rate.Every(time.Minute / time.Duration(l.policy.PerMinute))
		b = &bucket{limiter: rate.NewLimiter(every, l.policy.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (l *Local) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(l.buckets, k)
		}
	}
}
