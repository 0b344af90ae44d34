// Package cache provides a TTL-bounded result cache with single-flight
// coalescing: concurrent requests for one fingerprint pay for at most
// one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fingerprint derives a deterministic cache key from input content and
// computation identity. A fingerprint match implies byte-identical
// replay input.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	value     any
	createdAt time.Time
}

// Stats holds cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Expired int64
}

// Cache is a process-wide keyed store of computed results. Entries
// expire TTL after creation; expired entries are treated as absent.
// Capacity is unbounded, TTL is the only eviction policy.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry
	flight  singleflight.Group

	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty cache whose entries live for ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached value for fingerprint if a fresh one
// exists, otherwise runs compute. Concurrent callers sharing a
// fingerprint are coalesced onto one compute call and all observe its
// outcome: one value on success, one error on failure. Failures are
// shared with the in-flight waiters but never stored, so the next
// arrival recomputes.
//
// The second return value reports whether the value was served from the
// cache rather than computed for this caller.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, compute func(context.Context) (any, error)) (any, bool, error) {
	if v, ok := c.lookup(fingerprint); ok {
		c.hits.Add(1)
		return v, true, nil
	}
	c.misses.Add(1)

	v, err, shared := c.flight.Do(fingerprint, func() (any, error) {
		// Another caller may have stored a value while this one waited
		// for the flight slot.
		if v, ok := c.lookup(fingerprint); ok {
			return v, nil
		}

		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[fingerprint] = entry{value: v, createdAt: c.now()}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, shared, nil
}

// lookup returns a fresh entry's value. Expired entries are removed.
func (c *Cache) lookup(fingerprint string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.createdAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent compute may have
		// stored a fresh entry.
		if cur, ok := c.entries[fingerprint]; ok && c.now().Sub(cur.createdAt) >= c.ttl {
			delete(c.entries, fingerprint)
			c.expired.Add(1)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Len returns the number of stored entries, including any not yet
// swept expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Expired: c.expired.Load(),
	}
}

// GetOrCompute is the typed convenience wrapper around Cache.GetOrCompute.
func GetOrCompute[T any](ctx context.Context, c *Cache, fingerprint string, compute func(context.Context) (T, error)) (T, bool, error) {
	v, cached, err := c.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), cached, nil
}
