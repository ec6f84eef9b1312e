package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"queryhub/internal/metrics"
)

// ResponseCache is a best-effort key-value cache for completion responses.
// It is never the source of truth: a Get may miss at any time, and a failed
// Put must not fail the request that produced the response.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, response string) error
}

// Redis implements ResponseCache on a Redis server. Entries expire after the
// configured TTL; capacity eviction is left to the server's maxmemory policy.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(host string, port int, ttl time.Duration, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
	})
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached response for key. A backend error is logged and
// reported as a miss so the caller degrades to store-only mode.
func (c *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMissesTotal.Inc()
		return "", false
	}
	if err != nil {
		c.logger.Warn("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		metrics.CacheErrorsTotal.Inc()
		return "", false
	}
	metrics.CacheHitsTotal.Inc()
	return val, true
}

// Put upserts the response under key with the configured TTL.
func (c *Redis) Put(ctx context.Context, key, response string) error {
	if err := c.client.Set(ctx, key, response, c.ttl).Err(); err != nil {
		metrics.CacheErrorsTotal.Inc()
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Ping checks connectivity to the Redis server.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}
