package server

import (
	"context"
	"testing"
	"time"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		Burst:          3,
	})

	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other clients have their own bucket
	assert.True(t, limiter.Allow("10.0.0.2"))

	// One token per second at 60 requests per minute
	current = current.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMin: 1, Burst: 1})
	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"))
	}
	assert.Equal(t, 0, limiter.Len())
}

func TestRateLimiterCleanupIdle(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		Burst:          1,
		IdleTimeout:    10 * time.Minute,
	})

	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	limiter.Allow("old")
	current = current.Add(8 * time.Minute)
	limiter.Allow("recent")
	current = current.Add(5 * time.Minute)

	assert.Equal(t, 1, limiter.CleanupIdle())
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimiterRunStops(t *testing.T) {
	limiter := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 60})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
