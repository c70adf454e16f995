// Package redis wraps go-redis/v9 for the recommendation result cache:
// string get/set with TTL and prefix invalidation that deletes keys one
// SCAN page at a time.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Nil is the error Get returns for a missing key.
const Nil = redis.Nil

const (
	scanCount   = 250
	dialTimeout = 2 * time.Second
	ioTimeout   = 500 * time.Millisecond
)

// Client wraps a go-redis client.
type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient connects to Redis and verifies the connection with a PING.
// Read and write timeouts are short: a slow cache should fall through to
// scoring instead of holding the request.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s failed: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb, addr: cfg.Addr}, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// FlushByPattern removes every key matching the glob pattern and returns
// how many were deleted. Each SCAN page is unlinked in a single call.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		deleted int64
		cursor  uint64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("scanning %s on %s: %w", pattern, c.addr, err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			deleted += n
			if err != nil {
				return deleted, fmt.Errorf("unlinking %d keys on %s: %w", len(keys), c.addr, err)
			}
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// IsNilError reports whether err is a key-not-found reply.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping is used by the readiness check.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
