package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront/internal/metrics"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Cache is a JSON cache over redis. Callers treat it as best effort: a
// failing redis degrades to cache misses, never to failed requests.
type Cache struct {
	R *redis.Client
}

func (c *Cache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(family(key)).Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	metrics.CacheHits.WithLabelValues(family(key)).Inc()
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.R.Del(ctx, keys...).Err()
}

// Version reads a counter key, 0 when unset.
func (c *Cache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.R.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *Cache) Bump(ctx context.Context, key string) error {
	return c.R.Incr(ctx, key).Err()
}

// MarkOnce sets key if absent and reports whether this call set it.
func (c *Cache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.R.SetNX(ctx, key, "1", ttl).Result()
}

// family is the key prefix up to the first colon, used as a metric label.
func family(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
