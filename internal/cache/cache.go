// Package cache holds recent search responses keyed by normalized query and
// filter set. It is a best-effort accelerator: every failure mode degrades to a miss.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
)

// Defaults for the result cache.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 10000
	keyPrefix         = "search:"
)

type entry[V any] struct {
	payload  V
	storedAt time.Time
}

type config struct {
	now       func() time.Time
	results   *prometheus.CounterVec
	evictions *prometheus.CounterVec
	logger    *zap.Logger
}

// Option configures a Cache.
type Option func(*config)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithMetrics attaches lookup ("hit"/"miss"/"expired") and eviction ("expired"/"capacity"/"cleared") counters.
func WithMetrics(results, evictions *prometheus.CounterVec) Option {
	return func(c *config) {
		c.results = results
		c.evictions = evictions
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Cache is a TTL-checked, size-bounded map safe for concurrent use.
// A Get racing a Set on the same key may observe either value.
type Cache[V any] struct {
	ttl   time.Duration
	store *lru.Cache[string, entry[V]]
	cfg   config
}

// New creates a cache. ttl <= 0 uses DefaultTTL, maxEntries <= 0 uses DefaultMaxEntries.
func New[V any](ttl time.Duration, maxEntries int, opts ...Option) (*Cache[V], error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	cfg := config{now: time.Now, logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	store, err := lru.New[string, entry[V]](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache[V]{ttl: ttl, store: store, cfg: cfg}, nil
}

// Key derives the cache key. Filters are key-sorted, so insertion order never matters.
func Key(query string, filters filter.Filters) string {
	return keyPrefix + query + "?" + filters.Encode()
}

// Get returns the payload stored for (query, filters) if it is younger than the TTL.
// Expired entries are evicted on the way out.
func (c *Cache[V]) Get(query string, filters filter.Filters) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	key := Key(query, filters)
	e, ok := c.store.Get(key)
	if !ok {
		c.inc(c.cfg.results, "miss")
		return zero, false
	}
	if c.expired(e) {
		c.store.Remove(key)
		c.inc(c.cfg.results, "expired")
		c.inc(c.cfg.evictions, "expired")
		return zero, false
	}
	c.inc(c.cfg.results, "hit")
	return e.payload, true
}

// Set stores payload unconditionally, overwriting any previous value.
func (c *Cache[V]) Set(query string, filters filter.Filters, payload V) {
	if c == nil {
		return
	}
	if evicted := c.store.Add(Key(query, filters), entry[V]{payload: payload, storedAt: c.cfg.now()}); evicted {
		c.inc(c.cfg.evictions, "capacity")
	}
}

// Clear removes every entry when pattern is empty, otherwise only keys
// containing pattern. It returns the number of removed entries.
func (c *Cache[V]) Clear(pattern string) int {
	if c == nil {
		return 0
	}
	if pattern == "" {
		n := c.store.Len()
		c.store.Purge()
		c.add(c.cfg.evictions, "cleared", n)
		return n
	}
	removed := 0
	for _, k := range c.store.Keys() {
		if strings.Contains(k, pattern) && c.store.Remove(k) {
			removed++
		}
	}
	c.add(c.cfg.evictions, "cleared", removed)
	return removed
}

// Sweep evicts expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	removed := 0
	for _, k := range c.store.Keys() {
		e, ok := c.store.Peek(k)
		if ok && c.expired(e) && c.store.Remove(k) {
			removed++
		}
	}
	c.add(c.cfg.evictions, "expired", removed)
	return removed
}

// Run sweeps every interval until ctx is done. Sweeping only bounds memory;
// Get enforces the TTL on its own.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.cfg.logger.Debug("Swept expired cache entries", zap.Int("removed", n), zap.Int("remaining", c.Len()))
			}
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.store.Len()
}

// TTL returns the configured time-to-live.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

func (c *Cache[V]) expired(e entry[V]) bool {
	return c.cfg.now().Sub(e.storedAt) >= c.ttl
}

func (c *Cache[V]) inc(vec *prometheus.CounterVec, label string) {
	if vec != nil {
		vec.WithLabelValues(label).Inc()
	}
}

func (c *Cache[V]) add(vec *prometheus.CounterVec, label string, n int) {
	if vec != nil && n > 0 {
		vec.WithLabelValues(label).Add(float64(n))
	}
}
