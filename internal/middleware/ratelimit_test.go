package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ulugbek-dev/tarjimon/internal/config"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	r := NewRateLimiter()

	for i := 0; i < config.RequestsPerMinute; i++ {
		assert.True(t, r.allow(1), "request %d within burst should pass", i+1)
	}
	assert.False(t, r.allow(1), "request past the burst should be denied")
}

func TestRateLimiterIsPerChat(t *testing.T) {
	r := NewRateLimiter()

	for i := 0; i < config.RequestsPerMinute; i++ {
		r.allow(1)
	}
	assert.False(t, r.allow(1))
	assert.True(t, r.allow(2), "a different chat has its own budget")
}

func TestRateLimiterCleanup(t *testing.T) {
	r := NewRateLimiter()
	r.allow(1)
	r.allow(2)

	assert.Equal(t, 0, r.Cleanup(time.Minute), "fresh entries survive")
	assert.Equal(t, 2, r.Cleanup(0), "idle entries are pruned")
	assert.Equal(t, 0, r.Cleanup(0))
}
