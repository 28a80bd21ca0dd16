package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter applies the same sliding-log admission over a Redis
// sorted set per identity, for deployments that share the quota across
// instances. Scores and members are unix nanos.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(redisURL string, limit int, window time.Duration) (*RedisLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &RedisLimiter{
		client: redis.NewClient(opt),
		limit:  limit,
		window: window,
	}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	key := fmt.Sprintf("ratelimit:user:%s", identity)
	now := time.Now()
	cutoff := now.Add(-l.window)

	if err := l.client.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		return false, err
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count >= int64(l.limit) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := l.client.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		return false, err
	}
	l.client.Expire(ctx, key, l.window)

	return true, nil
}

func (l *RedisLimiter) Limit() int            { return l.limit }
func (l *RedisLimiter) Window() time.Duration { return l.window }

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
