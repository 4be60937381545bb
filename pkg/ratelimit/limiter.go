package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 30 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterStore keeps one token bucket per key. Keys idle for longer than the
// TTL are evicted so chats that went quiet do not accumulate.
type LimiterStore struct {
	limiters  map[string]*entry
	mu        sync.Mutex
	r         rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLimiterStore(r rate.Limit, burst int) *LimiterStore {
	return NewLimiterStoreWithTTL(r, burst, defaultIdleTTL)
}

func NewLimiterStoreWithTTL(r rate.Limit, burst int, ttl time.Duration) *LimiterStore {
	return &LimiterStore{
		limiters: make(map[string]*entry),
		r:        r,
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *LimiterStore) GetLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if e, exists := s.limiters[key]; exists {
		e.lastSeen = now
		return e.limiter
	}
	limiter := rate.NewLimiter(s.r, s.burst)
	s.limiters[key] = &entry{limiter: limiter, lastSeen: now}
	return limiter
}

// Len is the number of tracked keys.
func (s *LimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// sweep runs at most once per TTL. Caller holds mu.
func (s *LimiterStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for key, e := range s.limiters {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.limiters, key)
		}
	}
}
