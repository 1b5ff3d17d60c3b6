package access

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter is a policy hook on the video resource path, keyed by
// user+lesson. Deployments pick a strategy at wiring time.
type RateLimiter interface {
	Allow(userID, lessonID string) bool
}

type permissiveLimiter struct{}

var _ RateLimiter = (*permissiveLimiter)(nil)

// NewPermissiveLimiter returns a pass-through limiter.
func NewPermissiveLimiter() *permissiveLimiter {
	return &permissiveLimiter{}
}

func (permissiveLimiter) Allow(userID, lessonID string) bool { return true }

// tokenBucketLimiter keeps one token bucket per user+lesson key.
type tokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

var _ RateLimiter = (*tokenBucketLimiter)(nil)

func NewTokenBucketLimiter(limit rate.Limit, burst int) *tokenBucketLimiter {
	return &tokenBucketLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   limit,
		burst:   burst,
	}
}

func (l *tokenBucketLimiter) Allow(userID, lessonID string) bool {
	key := userID + ":" + lessonID

	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}
