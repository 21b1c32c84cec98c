// Redis quota store.
//
// Information Hiding:
// - Key layout hidden
// - Expiry of finished windows delegated to Redis

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "portfolio-chat:quota:"

// RedisStore keeps quota counts in Redis so replicas share one budget.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url and verifies it with
// a PING.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	if url == "" {
		return nil, fmt.Errorf("redis quota store requires REDIS_URL")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Increment implements QuotaStore. Each window is its own key and expires
// one hour after the window ends.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Time) (int64, error) {
	k := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, window.Unix())

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireAt(ctx, k, window.Add(QuotaWindow+time.Hour))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment redis quota: %w", err)
	}
	return incr.Val(), nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ QuotaStore = (*RedisStore)(nil)
