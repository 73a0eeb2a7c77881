package ratelimiter

import (
	"DocQA/backend/go/pkg/util"
)

// RateLimiter is the interface for rate limiting.
// It defines a single method, Allow, which returns true if a request is allowed,
// and false otherwise.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Factory builds a fresh limiter for one client.
type Factory func() RateLimiter

// Keyed keeps one limiter per key (usually the client IP).
// At most maxKeys limiters are kept; the least recently seen key is dropped first
// and starts over with a fresh limiter when it comes back.
type Keyed struct {
	newLimiter Factory
	limiters   *util.LRUCache[string, RateLimiter]
}

// NewKeyed creates a Keyed limiter. maxKeys <= 0 keeps every key.
func NewKeyed(newLimiter Factory, maxKeys int) *Keyed {
	return &Keyed{
		newLimiter: newLimiter,
		limiters: util.NewWithConfig(util.CacheConfig[string, RateLimiter]{
			Capacity: maxKeys,
		}),
	}
}

// Allow reports whether a request for key may proceed.
func (k *Keyed) Allow(key string) bool {
	l, ok := k.limiters.Get(key)
	if !ok {
		l = k.newLimiter()
		if !k.limiters.PutIfAbsent(key, l, 1) {
			// 并发请求已经创建了同一个 key 的限流器
			if existing, ok := k.limiters.Get(key); ok {
				l = existing
			}
		}
	}
	return l.Allow()
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	return k.limiters.Len()
}
