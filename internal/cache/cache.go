// Package cache provides an in-memory TTL cache with a capacity bound and a
// periodic sweep. It holds one entry per repository, so the table stays
// small; correctness of expiry matters more than lookup throughput.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultTTL           = 24 * time.Hour
	DefaultMaxEntries    = 64
	DefaultSweepInterval = 15 * time.Minute
)

// Config controls entry lifetime and table size. Zero values fall back to
// the defaults.
type Config struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// Stats is a point-in-time snapshot of cache state and counters.
type Stats struct {
	Size        int   `json:"size"`
	ApproxBytes int64 `json:"approx_bytes"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

type entry[V any] struct {
	value      V
	bytes      int64
	insertedAt time.Time
}

// Cache maps string keys to values of type V. Entries expire a fixed TTL
// after insertion; expired entries are dropped lazily on access and by the
// background sweep. When the table is full the oldest entry makes room.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]

	ttl time.Duration
	max int
	log *slog.Logger

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64

	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts its sweep goroutine. Close releases it.
func New[V any](cfg Config, log *slog.Logger) *Cache[V] {
	cfg = cfg.withDefaults()
	c := &Cache[V]{
		entries: make(map[string]*entry[V]),
		ttl:     cfg.TTL,
		max:     cfg.MaxEntries,
		log:     log,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweepLoop(cfg.SweepInterval)
	return c
}

// Get returns the live value for key. An expired entry counts as a miss and
// is removed on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		c.misses.Add(1)
		return zero, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		c.mu.RUnlock()
		c.mu.Lock()
		// Re-check under the write lock: the entry may have been replaced
		// while the read lock was dropped.
		if cur, ok := c.entries[key]; ok && c.now().Sub(cur.insertedAt) > c.ttl {
			delete(c.entries, key)
			c.expirations.Add(1)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return zero, false
	}
	v := e.value
	c.mu.RUnlock()
	c.hits.Add(1)
	return v, true
}

// Put inserts or replaces the value for key. approxBytes is the caller's
// size estimate, reported by Stats. Inserting a new key into a full table
// first evicts the oldest entry.
func (c *Cache[V]) Put(key string, value V, approxBytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry[V]{value: value, bytes: approxBytes, insertedAt: c.now()}
}

// evictOldestLocked removes the entry with the earliest insertion time,
// breaking ties on key order so eviction stays deterministic.
func (c *Cache[V]) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldestAt) || (e.insertedAt.Equal(oldestAt) && k < oldestKey) {
			oldestKey, oldestAt = k, e.insertedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
	}
}

// Invalidate removes one key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry. Counters keep their values.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Stats snapshots current size and lifetime counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	var bytes int64
	for _, e := range c.entries {
		bytes += e.bytes
	}
	c.mu.RUnlock()

	return Stats{
		Size:        size,
		ApproxBytes: bytes,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes every expired entry, bounding the memory held by
// repositories nobody queries anymore.
func (c *Cache[V]) sweep() int {
	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if c.now().Sub(e.insertedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	remaining := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.expirations.Add(int64(removed))
		c.log.Debug("cache sweep", "removed", removed, "remaining", remaining)
	}
	return removed
}
