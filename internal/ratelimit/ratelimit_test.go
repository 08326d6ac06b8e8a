package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_BurstThenBlocked(t *testing.T) {
	rl := New(1, 3)
	defer rl.Stop()

	// The burst covers the first three attempts from one address.
	for i := range 3 {
		assert.True(t, rl.Allow("203.0.113.7"), "attempt %d should pass", i+1)
	}
	assert.False(t, rl.Allow("203.0.113.7"), "burst exhausted, attempt should be blocked")
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("203.0.113.7"))
	require.False(t, rl.Allow("203.0.113.7"))

	// A different address has its own bucket.
	assert.True(t, rl.Allow("198.51.100.23"))
}

func TestWait_PacesToRate(t *testing.T) {
	rl := New(10, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "203.0.113.7"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "first request should not wait")

	// The second request waits roughly one token interval (100ms at 10 rps).
	start = time.Now()
	require.NoError(t, rl.Wait(ctx, "203.0.113.7"))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestWait_ContextCancelled(t *testing.T) {
	// One token per ten seconds, so the second request cannot be served
	// inside the context deadline.
	rl := New(0.1, 1)
	defer rl.Stop()

	rl.Allow("203.0.113.7")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, rl.Wait(ctx, "203.0.113.7"))
}
