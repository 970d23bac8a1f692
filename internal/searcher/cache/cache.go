// Package cache stores search results in Redis, keyed by the canonical form
// of the request, and collapses concurrent identical searches into one.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/span-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/span-search/pkg/redis"
)

const keyPrefix = "search:"

// Store is the subset of pkg/redis.Client the cache needs. Get must return
// an error matching pkg/redis.Nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	CountByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies a search request. Queries that are Equal share a key.
type Key struct {
	Query  query.SpanQuery
	Limit  int
	Sort   *merger.Sort
	Filter query.Filter
}

func (k Key) String() string {
	filter := ""
	if k.Filter != nil {
		filter = k.Filter.String()
	}
	raw := fmt.Sprintf("%016x|limit=%d|sort=%s|filter=%s", k.Query.Hash(), k.Limit, k.Sort, filter)
	return fmt.Sprintf("%s%016x", keyPrefix, xxhash.Sum64String(raw))
}

type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Keys   int64 `json:"keys"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over store; m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, key Key) (*merger.TopDocs, bool) {
	td, ok := c.lookup(ctx, key)
	if !ok {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return td, true
}

// lookup reads key without touching the hit and miss counters.
func (c *QueryCache) lookup(ctx context.Context, key Key) (*merger.TopDocs, bool) {
	k := key.String()
	data, err := c.store.Get(ctx, k)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", k, "error", err)
		}
		return nil, false
	}
	var td merger.TopDocs
	if err := json.Unmarshal([]byte(data), &td); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		return nil, false
	}
	c.logger.Debug("cache hit", "query", key.Query.String(), "key", k)
	return &td, true
}

func (c *QueryCache) Set(ctx context.Context, key Key, td *merger.TopDocs) {
	k := key.String()
	data, err := json.Marshal(td)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.store.Set(ctx, k, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached result for key, or runs compute once for
// all concurrent callers with the same key and caches its result. The bool
// reports a cache hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, compute func() (*merger.TopDocs, error)) (*merger.TopDocs, bool, error) {
	if td, ok := c.Get(ctx, key); ok {
		return td, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		if td, ok := c.lookup(ctx, key); ok {
			return td, nil
		}
		td, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, td)
		return td, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*merger.TopDocs), false, nil
}

// Invalidate drops every cached search and returns how many were removed.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats(ctx context.Context) (Stats, error) {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	keys, err := c.store.CountByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return s, fmt.Errorf("counting cache keys: %w", err)
	}
	s.Keys = keys
	return s, nil
}
