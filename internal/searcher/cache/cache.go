// Package cache memoizes search results in Redis. Keys are namespaced by the
// engine fingerprint, so results computed for a different corpus or
// different ranking parameters are never served.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Relevance-Ranking-Engine/pkg/resilience"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("cache: CBOR decoder initialization failed: " + err.Error())
	}
}

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Normalizer maps a query to its canonical term list.
type Normalizer func(query string) []string

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Errors    int64   `json:"errors"`
	Total     int64   `json:"total"`
	HitRate   float64 `json:"hit_rate"`
	Breaker   string  `json:"breaker"`
	Namespace string  `json:"namespace"`
}

type QueryCache struct {
	store     Store
	ttl       time.Duration
	namespace string
	normalize Normalizer
	breaker   *resilience.CircuitBreaker
	group     singleflight.Group
	metrics   *metrics.Metrics
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
}

// New builds a cache over store. fingerprint identifies the engine whose
// results are cached; m may be nil.
func New(store Store, ttl time.Duration, fingerprint string, normalize Normalizer, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:     store,
		ttl:       ttl,
		namespace: fingerprint,
		normalize: normalize,
		metrics:   m,
		logger:    slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		Ignore: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get returns the cached result for (query, limit), if any. Store failures
// count as misses.
func (c *QueryCache) Get(ctx context.Context, query string, limit int) (*executor.SearchResult, bool) {
	key := c.Key(query, limit)
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := decMode.Unmarshal(data, &result); err != nil {
		c.errors.Add(1)
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if result.Results == nil {
		result.Results = []executor.Hit{}
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, result *executor.SearchResult) {
	key := c.Key(query, limit)
	data, err := encMode.Marshal(result)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute serves (query, limit) from the cache or computes it once per
// key across concurrent callers. The boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, limit); ok {
		return result, true, nil
	}
	key := c.Key(query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every entry in this engine's namespace.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	pattern := keyPrefix + c.namespace + ":*"
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, pattern)
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{
		Hits:      hits,
		Misses:    misses,
		Errors:    c.errors.Load(),
		Total:     hits + misses,
		Breaker:   c.breaker.GetState().String(),
		Namespace: c.namespace,
	}
	if s.Total > 0 {
		s.HitRate = float64(hits) / float64(s.Total)
	}
	return s
}

// Key derives the Redis key for (query, limit). Queries with the same
// multiset of analyzed terms share a key.
func (c *QueryCache) Key(query string, limit int) string {
	terms := c.normalize(query)
	raw := strings.Join(terms, "\x00") + "\x00limit=" + strconv.Itoa(limit)
	sum := blake3.Sum256([]byte(raw))
	return keyPrefix + c.namespace + ":" + hex.EncodeToString(sum[:16])
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
