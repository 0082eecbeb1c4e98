// Package joblock provides a Redis-backed lock so that only one instance
// runs a given scheduled job at a time. The lock is advisory: every job is
// idempotent, so a lost or expired lock degrades to duplicate work, not
// corruption.
package joblock

import (
	"context"
	"time"

	"github.com/hrcore/attendance-engine/internal/infrastructure/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "attendance:joblock:"

type RedisLocker struct {
	client *redis.Client
	logger *observability.Logger
}

func NewRedisLocker(client *redis.Client, logger *observability.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

// Acquire takes the named lock with SET NX and a TTL so a crashed holder
// cannot wedge the job forever.
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, keyPrefix+name, "1", ttl).Result()
}

// Release drops the lock early; expiry handles the crash case.
func (l *RedisLocker) Release(ctx context.Context, name string) {
	if err := l.client.Del(ctx, keyPrefix+name).Err(); err != nil {
		l.logger.Warn(ctx, "Failed to release job lock",
			zap.String("job", name), zap.Error(err))
	}
}
