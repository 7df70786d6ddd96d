// Package redis wraps go-redis/v9 for the query-result cache: byte-valued
// get/set with TTL, pattern-based invalidation and a health ping.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/config"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient connects and verifies the server with a PING bounded by ctx.
// Per-command timeouts come from cfg.OpTimeout.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 100 * time.Millisecond
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		// the cache is optional, so a saturated pool should fail fast
		PoolTimeout: 2 * opTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb, addr: cfg.Addr}, nil
}

// Get returns the raw value for key. A missing key yields an error for
// which IsNilError is true.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// FlushByPattern deletes every key matching the glob pattern. Keys are
// collected with SCAN and removed through UNLINK in pipelined batches, so
// flushing a large cached namespace neither blocks the server nor makes one
// round trip per key.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for {
		more := iter.Next(ctx)
		if more {
			batch = append(batch, iter.Val())
		}
		if len(batch) == scanBatch || (!more && len(batch) > 0) {
			n, err := c.rdb.Unlink(ctx, batch...).Result()
			if err != nil {
				return deleted, fmt.Errorf("unlinking %d keys: %w", len(batch), err)
			}
			deleted += n
			batch = batch[:0]
		}
		if !more {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %s: %w", pattern, err)
	}
	return deleted, nil
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

// PoolStats exposes connection pool counters for logging.
func (c *Client) PoolStats() *redis.PoolStats {
	return c.rdb.PoolStats()
}
