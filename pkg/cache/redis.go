package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerr "github.com/matzehuels/legalize/pkg/errors"
)

// RedisCache stores entries in Redis. The server uses it so that several
// instances share results.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis instance at url
// (redis://[user:pass@]host:port/db). The connection is checked with PING.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	if err := pkgerr.ValidateCacheURL(url); err != nil {
		return nil, err
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, pkgerr.Wrap(pkgerr.ErrCodeInvalidInput, err, "parse cache URL")
	}
	// Retries are done by RetryWithBackoff.
	opt.MaxRetries = -1
	opt.DialTimeout = 2 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &RedisCache{client: client}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data []byte
		hit  bool
	)
	err := RetryWithBackoff(ctx, func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return transient(err)
		}
		data, hit = b, true
		return nil
	})
	if err != nil {
		return nil, false, unavailable(err)
	}
	return data, hit, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	err := RetryWithBackoff(ctx, func() error {
		return transient(c.client.Set(ctx, key, data, ttl).Err())
	})
	return unavailable(err)
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := RetryWithBackoff(ctx, func() error {
		return transient(c.client.Del(ctx, key).Err())
	})
	return unavailable(err)
}

// Close closes the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// transient marks every Redis failure except cancellation as retryable.
func transient(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return Retryable(err)
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

var _ Cache = (*RedisCache)(nil)
