package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLocalLimiterBurst(t *testing.T) {
	l := NewLocalLimiter(rate.Limit(0.001), 2)
	ctx := context.Background()
	for range 2 {
		ok, err := l.Allow(ctx, "")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "")
	assert.False(t, ok)
}

func TestKeyedLimiterIsolatesKeys(t *testing.T) {
	l := NewKeyedLimiter(rate.Limit(0.001), 1, time.Minute)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Len())
}

func TestKeyedLimiterEvictsIdleBuckets(t *testing.T) {
	l := NewKeyedLimiter(rate.Limit(1), 1, time.Minute)
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	now = now.Add(2 * time.Minute)
	_, _ = l.Allow(context.Background(), "b")
	assert.Equal(t, 1, l.Len())
}

func TestDynamicLimiterUpdate(t *testing.T) {
	d := NewDynamicKeyedLimiter(1, 1)
	ctx := context.Background()

	ok, _ := d.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = d.Allow(ctx, "k")
	assert.False(t, ok)

	d.UpdateKeyed(0, 0)
	for range 5 {
		ok, _ = d.Allow(ctx, "k")
		assert.True(t, ok)
	}

	var nilLimiter *DynamicLimiter
	ok, err := nilLimiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSemaphoreLimiter(t *testing.T) {
	l := NewSemaphoreLimiter(1)
	require.NoError(t, l.Acquire(context.Background()))
	assert.False(t, l.TryAcquire())
	assert.Equal(t, 1, l.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.DeadlineExceeded)

	l.Release()
	assert.True(t, l.TryAcquire())
	l.Release()

	assert.NotPanics(t, l.Release)
	assert.Zero(t, l.InUse())
	assert.True(t, l.TryAcquire())

	unlimited := NewSemaphoreLimiter(0)
	assert.True(t, unlimited.TryAcquire())
	assert.Zero(t, unlimited.InUse())
}
