// Package cache keeps recommendation results in Redis. Keys embed the
// catalog fingerprint, so a rebuild with different content makes every
// older entry unreachable without an explicit flush, and replicas serving
// the same catalog share entries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/recommend"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/resilience"
)

const (
	keyPrefix   = "recommend:"
	breakerName = "redis-cache"
)

// Store is the subset of the Redis client the cache needs. Get returns
// pkgredis.Nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ResultCache implements recommend.Cache. Store failures degrade to a miss;
// repeated failures trip a circuit breaker so a dead Redis costs nothing
// per request.
type ResultCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *ResultCache {
	c := &ResultCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker(breakerName, resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		IsFailure:        isStoreFailure,
		OnStateChange:    c.onBreakerChange,
	})
	c.onBreakerChange(breakerName, resilience.StateClosed, resilience.StateClosed)
	return c
}

func (c *ResultCache) get(ctx context.Context, key string) (*recommend.Result, bool) {
	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	if data == "" {
		return nil, false
	}
	var result recommend.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed, evicting", "key", key, "error", err)
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("cache evict failed", "key", key, "error", err)
		}
		return nil, false
	}
	return &result, true
}

func (c *ResultCache) set(ctx context.Context, key string, result *recommend.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key, or runs compute once per
// key across concurrent callers and stores what it returns.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func(context.Context) (*recommend.Result, error),
) (*recommend.Result, bool, error) {
	hashed := buildKey(key)
	if result, ok := c.get(ctx, hashed); ok {
		c.recordHit()
		return result, true, nil
	}
	c.recordMiss()
	val, err, _ := c.group.Do(hashed, func() (any, error) {
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, hashed, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*recommend.Result), false, nil
}

// Invalidate drops every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns hit and miss counts since start.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the circuit breaker guarding the store.
func (c *ResultCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *ResultCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *ResultCache) onBreakerChange(name string, from, to resilience.State) {
	if from != to {
		c.logger.Warn("cache breaker changed state", "from", from.String(), "to", to.String())
	}
	if c.metrics != nil {
		c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}

// isStoreFailure keeps callers that hang up from tripping the breaker.
func isStoreFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func buildKey(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
