package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/kagemura/scanlate/models"
)

// entry holds a cached value with its creation timestamp and TTL.
type entry[T any] struct {
	value     T
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry[T]) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Config controls a Cache's eviction behavior.
type Config struct {
	// MaxEntries triggers a full sweep when an insert finds the store at
	// this size, bounding memory before the periodic sweep runs.
	MaxEntries int

	// SweepInterval is the period of the background eviction sweep.
	SweepInterval time.Duration

	// ExpiredHitThreshold triggers an early sweep once this many reads
	// have hit expired entries since the last sweep. Amortizes cleanup
	// between timer ticks. Zero disables the early sweep.
	ExpiredHitThreshold int
}

// Cache is an in-memory cache-aside store with per-entry TTLs. Expiry is
// lazy (checked on every read) plus three proactive sweeps: periodic,
// expired-hit-threshold, and at-capacity on insert. Eviction is purely
// expiry-based; there is no LRU.
//
// It is safe for concurrent use.
type Cache[T any] struct {
	mu          sync.RWMutex
	store       map[string]*entry[T]
	cfg         Config
	expiredHits int // reads that found an expired entry since the last sweep

	hits   uint64
	misses uint64

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache and starts its background sweep goroutine.
func New[T any](cfg Config) *Cache[T] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	c := &Cache[T]{
		store: make(map[string]*entry[T]),
		cfg:   cfg,
		done:  make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Key builds a cache key from its parts. The sha256 digest keeps keys
// fixed-size regardless of URL length.
func Key(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key if present and unexpired.
// A read that finds an expired entry removes it and counts toward the
// early-sweep threshold.
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	now := time.Now()

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	if e.expired(now) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry with a fresh one.
		if cur, still := c.store[key]; still && cur.expired(now) {
			delete(c.store, key)
			c.expiredHits++
			if c.cfg.ExpiredHitThreshold > 0 && c.expiredHits >= c.cfg.ExpiredHitThreshold {
				c.sweepLocked(now)
			}
		}
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return e.value, true
}

// Set stores value under key with the given TTL. An insert that finds
// the store at capacity sweeps expired entries first; if everything is
// still fresh one arbitrary entry is evicted to make room (map iteration
// order is random in Go).
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.cfg.MaxEntries {
		c.sweepLocked(now)
		if len(c.store) >= c.cfg.MaxEntries {
			for k := range c.store {
				delete(c.store, k)
				break
			}
		}
	}

	c.store[key] = &entry[T]{value: value, createdAt: now, ttl: ttl}
}

// GetOrSet implements cache-aside: on miss it invokes factory, stores the
// result under ttl, and returns it. A factory error is propagated to the
// caller uncached — a failed fetch must never masquerade as a cached
// empty result.
//
// There is deliberately no single-flight: two concurrent misses for the
// same key both invoke the factory, and the later writer wins.
func (c *Cache[T]) GetOrSet(key string, factory func() (T, error), ttl time.Duration) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := factory()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Delete removes key if present.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

// Stats returns a snapshot of the hit/miss counters and entry count.
func (c *Cache[T]) Stats() models.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := models.CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.store)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Stop terminates the background sweep goroutine. Idempotent.
func (c *Cache[T]) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// sweepLoop evicts expired entries on a fixed interval.
func (c *Cache[T]) sweepLoop() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.sweepLocked(time.Now())
			c.mu.Unlock()
		}
	}
}

// sweepLocked removes every expired entry. Caller must hold c.mu.
func (c *Cache[T]) sweepLocked(now time.Time) {
	for k, e := range c.store {
		if e.expired(now) {
			delete(c.store, k)
		}
	}
	c.expiredHits = 0
}
