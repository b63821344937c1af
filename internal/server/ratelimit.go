package server

import (
	"context"
	"sync"
	"time"

	"github.com/raaihank/pii-redactor/internal/config"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client
type RateLimiter struct {
	config  config.RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	return &RateLimiter{
		config:  cfg,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow checks if a request from the given client is allowed
func (r *RateLimiter) Allow(client string) bool {
	if !r.config.Enabled {
		return true
	}

	r.mu.Lock()
	now := r.now()
	b, ok := r.buckets[client]
	if !ok {
		perSecond := rate.Limit(float64(r.config.RequestsPerMin) / 60.0)
		b = &bucket{limiter: rate.NewLimiter(perSecond, r.config.Burst)}
		r.buckets[client] = b
	}
	b.lastSeen = now
	r.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

// CleanupIdle removes buckets not used within the idle timeout
func (r *RateLimiter) CleanupIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.config.IdleTimeout)
	removed := 0
	for client, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, client)
			removed++
		}
	}
	return removed
}

// Run cleans up idle buckets every interval until ctx is cancelled
func (r *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.CleanupIdle()
		}
	}
}
