package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow counts hits per key and starts the window on the first hit.
var fixedWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`)

type limiter struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewLimiter(rc *redis.Client, logger *slog.Logger) *limiter {
	return &limiter{
		rc:     rc,
		logger: logger.With("component", "ratelimit.redis"),
	}
}

func (l limiter) getKey(key string) string {
	return "ratelimit:" + key
}

// Allow reports whether one more hit fits into limit hits per window for key.
func (l limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.logger.DebugContext(ctx, "called", "key", key, "limit", limit, "window", window)
	result, err := fixedWindow.Run(ctx, l.rc, []string{l.getKey(key)}, limit, window.Milliseconds()).Int()
	if err != nil {
		l.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return result == 1, nil
}
