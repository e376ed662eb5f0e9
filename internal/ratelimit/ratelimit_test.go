package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BurstThenReject(t *testing.T) {
	l := NewMemoryLimiter(10, 20, time.Minute)

	now := time.Now()
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		allowed, err := l.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d within burst should be admitted", i+1)
	}

	allowed, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, allowed, "request beyond burst should be rejected")
}

func TestMemoryLimiter_Refill(t *testing.T) {
	l := NewMemoryLimiter(10, 20, time.Minute)

	now := time.Now()
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		l.Allow(ctx, "client")
	}
	allowed, _ := l.Allow(ctx, "client")
	require.False(t, allowed)

	// One second later the bucket holds rate more tokens
	now = now.Add(time.Second)
	admitted := 0
	for i := 0; i < 20; i++ {
		if ok, _ := l.Allow(ctx, "client"); ok {
			admitted++
		}
	}
	assert.GreaterOrEqual(t, admitted, 10)
	assert.Less(t, admitted, 20, "refill must be capped at elapsed*rate")
}

func TestMemoryLimiter_KeyIsolation(t *testing.T) {
	l := NewMemoryLimiter(1, 1, time.Minute)

	now := time.Now()
	l.now = func() time.Time { return now }

	ctx := context.Background()
	allowed, _ := l.Allow(ctx, "noisy")
	require.True(t, allowed)
	allowed, _ = l.Allow(ctx, "noisy")
	require.False(t, allowed, "noisy client should be exhausted")

	allowed, _ = l.Allow(ctx, "quiet")
	assert.True(t, allowed, "other clients keep their own bucket")
}

func TestMemoryLimiter_IdleEviction(t *testing.T) {
	l := NewMemoryLimiter(1, 1, time.Minute)

	now := time.Now()
	l.now = func() time.Time { return now }

	ctx := context.Background()
	l.Allow(ctx, "a")
	l.Allow(ctx, "b")
	require.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow(ctx, "c")
	assert.Equal(t, 1, l.Len(), "idle buckets should be swept")

	// An evicted key starts over with a full bucket
	allowed, _ := l.Allow(ctx, "a")
	assert.True(t, allowed)
}
