// Package cache provides the time-aware, failure-tolerant cache shared by the pipeline.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pubspy/internal/metrics"
	"pubspy/pkg/log"
)

// flightTimeout bounds a shared producer run once it no longer follows a caller's ctx.
const flightTimeout = 2 * time.Minute

// Class groups entries that share a time-to-live.
type Class string

const (
	ClassSearch       Class = "search"
	ClassAdsTxt       Class = "ads.txt"
	ClassPageAnalysis Class = "page-analysis"
	ClassVerification Class = "verification"
	ClassResponse     Class = "response"
)

// DefaultTTLs returns the default time-to-live of every class.
func DefaultTTLs() map[Class]time.Duration {
	return map[Class]time.Duration{
		ClassSearch:       30 * time.Minute,
		ClassAdsTxt:       24 * time.Hour,
		ClassPageAnalysis: time.Hour,
		ClassVerification: 12 * time.Hour,
		ClassResponse:     5 * time.Minute,
	}
}

// Key builds a cache key of the form class:part1:part2, lowercased.
func Key(class Class, parts ...string) string {
	var b strings.Builder
	b.WriteString(string(class))
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(p))
	}
	return strings.ToLower(b.String())
}

// Backend is an optional second tier consulted on memory misses.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	StaleHits uint64  `json:"staleHits"`
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hitRate"`
}

// cacheEntry holds a cached value with expiration metadata.
type cacheEntry struct {
	data      any
	class     Class
	createdAt time.Time
	ttl       time.Duration
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// TTLCache is an in-memory cache whose entries expire per TTL class.
// Expired entries are kept until swept so they can be served when a refresh fails.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	ttls    map[Class]time.Duration

	hits      uint64
	misses    uint64
	staleHits uint64

	flights singleflight.Group
	backend Backend
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithTTL overrides the time-to-live of one class.
func WithTTL(class Class, ttl time.Duration) Option {
	return func(c *TTLCache) {
		c.ttls[class] = ttl
	}
}

// WithBackend attaches a second-tier backend.
func WithBackend(b Backend) Option {
	return func(c *TTLCache) {
		c.backend = b
	}
}

// WithMetrics records lookups into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *TTLCache) {
		c.metrics = m
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		c.now = now
	}
}

// New creates a TTLCache with the default class TTLs.
func New(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]*cacheEntry),
		ttls:    DefaultTTLs(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// TTL returns the time-to-live of class. Unknown classes use the response TTL.
func (c *TTLCache) TTL(class Class) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttlLocked(class)
}

func (c *TTLCache) ttlLocked(class Class) time.Duration {
	if ttl, ok := c.ttls[class]; ok {
		return ttl
	}
	return c.ttls[ClassResponse]
}

// SetTTL changes the time-to-live of class for entries stored from now on.
func (c *TTLCache) SetTTL(class Class, ttl time.Duration) {
	c.mu.Lock()
	c.ttls[class] = ttl
	c.mu.Unlock()
}

// Get returns the value stored under key if it is still live.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		return nil, false
	}
	return e.data, true
}

// Set stores value under key with the TTL of class. A non-positive TTL disables caching.
func (c *TTLCache) Set(key string, class Class, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, class, value)
}

func (c *TTLCache) setLocked(key string, class Class, value any) {
	ttl := c.ttlLocked(class)
	if ttl <= 0 {
		return
	}
	c.entries[key] = &cacheEntry{
		data:      value,
		class:     class,
		createdAt: c.now(),
		ttl:       ttl,
	}
	c.metrics.SetCacheEntries(len(c.entries))
}

// Delete removes key.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.metrics.SetCacheEntries(len(c.entries))
	c.mu.Unlock()
}

// Clear removes every entry and resets the counters.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.hits, c.misses, c.staleHits = 0, 0, 0
	c.metrics.SetCacheEntries(0)
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many were removed.
func (c *TTLCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.metrics.SetCacheEntries(len(c.entries))
	return removed
}

// StartSweeper sweeps every interval until ctx is cancelled.
func (c *TTLCache) StartSweeper(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					log.GlobalDebug("cache sweep", "removed", n)
				}
			}
		}
	}()
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		StaleHits: c.staleHits,
		Entries:   len(c.entries),
	}
	if total := s.Hits + s.Misses + s.StaleHits; total > 0 {
		s.HitRate = float64(s.Hits+s.StaleHits) / float64(total)
	}
	return s
}

// lookup returns the entry for key and whether it is live.
func (c *TTLCache) lookup(key string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e, !e.expired(c.now())
}

func (c *TTLCache) record(class Class, outcome string) {
	c.mu.Lock()
	switch outcome {
	case "hit":
		c.hits++
	case "miss":
		c.misses++
	case "stale":
		c.staleHits++
	}
	c.mu.Unlock()
	c.metrics.RecordCacheLookup(string(class), outcome)
}

// decode converts a stored value to T. Imported and backend values arrive as raw JSON.
func decode[T any](v any) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}
	var zero T
	raw, ok := v.(json.RawMessage)
	if !ok {
		return zero, false
	}
	var t T
	if err := json.Unmarshal(raw, &t); err != nil {
		return zero, false
	}
	return t, true
}

// GetOrCompute returns the live value under key or runs producer to refresh it.
// When producer fails and an expired value exists, the expired value is returned.
// Concurrent calls for the same key share one producer run. The shared run is detached
// from any single caller's cancellation; each caller stops waiting when its own ctx is done.
func GetOrCompute[T any](ctx context.Context, c *TTLCache, key string, class Class, producer func(context.Context) (T, error)) (T, error) {
	if e, live := c.lookup(key); live {
		if t, ok := decode[T](e.data); ok {
			c.record(class, "hit")
			return t, nil
		}
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(flightCtx, flightTimeout)
		defer cancel()
		// a flight that just finished may have filled the entry
		if e, live := c.lookup(key); live {
			if t, ok := decode[T](e.data); ok {
				c.record(class, "hit")
				return t, nil
			}
		}

		if t, ok := loadBackend[T](ctx, c, key, class); ok {
			c.record(class, "hit")
			return t, nil
		}

		t, err := producer(ctx)
		if err != nil {
			if e, _ := c.lookup(key); e != nil {
				if stale, ok := decode[T](e.data); ok {
					c.record(class, "stale")
					log.GlobalWarnCtx(ctx, "serving stale cache entry", "key", key, "age", c.now().Sub(e.createdAt).String(), "error", err)
					return stale, nil
				}
			}
			c.record(class, "miss")
			return nil, err
		}

		c.Set(key, class, t)
		c.record(class, "miss")
		storeBackend(ctx, c, key, class, t)
		return t, nil
	})

	var zero T
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	v := res.Val
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected value type %T for key %s", v, key)
	}
	return t, nil
}

func loadBackend[T any](ctx context.Context, c *TTLCache, key string, class Class) (T, bool) {
	var zero T
	if c.backend == nil {
		return zero, false
	}

	data, found, err := c.backend.Load(ctx, key)
	if err != nil {
		log.GlobalWarnCtx(ctx, "cache backend load failed", "key", key, "error", err)
		return zero, false
	}
	if !found {
		return zero, false
	}

	var t T
	if err := json.Unmarshal(data, &t); err != nil {
		log.GlobalWarnCtx(ctx, "cache backend value undecodable", "key", key, "error", err)
		return zero, false
	}
	c.Set(key, class, t)
	return t, true
}

func storeBackend(ctx context.Context, c *TTLCache, key string, class Class, value any) {
	if c.backend == nil {
		return
	}
	ttl := c.TTL(class)
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.GlobalWarnCtx(ctx, "cache value not serializable", "key", key, "error", err)
		return
	}
	if err := c.backend.Store(ctx, key, data, ttl); err != nil {
		log.GlobalWarnCtx(ctx, "cache backend store failed", "key", key, "error", err)
	}
}
