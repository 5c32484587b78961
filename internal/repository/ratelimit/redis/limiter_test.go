package redis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowFixedWindow(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rc.Close()

	l := NewLimiter(rc, slog.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "chat:room:user", 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d must pass", i)
	}

	ok, err := l.Allow(ctx, "chat:room:user", 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "chat:room:other", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	s.FastForward(time.Second + time.Millisecond)

	ok, err = l.Allow(ctx, "chat:room:user", 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
