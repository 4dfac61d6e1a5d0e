package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyLimiter(t *testing.T) {
	t.Parallel()

	limiter := NewConcurrencyLimiter("test", 2)
	ctx := context.Background()

	first, err := limiter.Wait(ctx)
	require.NoError(t, err)

	second, err := limiter.Wait(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), limiter.InProgress())

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	_, err = limiter.Wait(timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	limiter.FreeTicket(first)
	assert.Equal(t, int32(1), limiter.InProgress())

	third, err := limiter.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestDurationLimiter(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)

	limiter := NewDurationLimiter("test", 2, 5*time.Second)
	limiter.now = func() time.Time { return now }

	assert.Equal(t, time.Duration(0), limiter.reserve())
	assert.Equal(t, time.Duration(0), limiter.reserve())
	assert.Equal(t, 5*time.Second, limiter.reserve())

	now = now.Add(2 * time.Second)
	assert.Equal(t, 3*time.Second, limiter.reserve())

	now = now.Add(3 * time.Second)
	assert.Equal(t, time.Duration(0), limiter.reserve())
}

func TestDurationLimiterLockHonoursContext(t *testing.T) {
	t.Parallel()

	limiter := NewDurationLimiter("test", 1, time.Hour)

	waited, err := limiter.Lock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), waited)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = limiter.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
