package fallback

import (
	"sync"
	"time"

	"github.com/metricspider/metricspider/internal/metrics"
)

// DefaultCacheTTL bounds how stale a cached snapshot may be before it no
// longer qualifies as a substitute.
const DefaultCacheTTL = 15 * time.Minute

type cacheEntry struct {
	fields   *metrics.RawFields
	storedAt time.Time
}

// Cache is a short-TTL snapshot cache keyed by target key. The coordinator
// populates it on every successful collection so a later failure in the
// same run can fall back to it.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// SetClock injects a clock for testing.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now != nil {
		c.now = now
	}
}

func (c *Cache) Put(targetKey string, fields *metrics.RawFields) {
	if fields == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[targetKey] = cacheEntry{
		fields:   fields,
		storedAt: c.now(),
	}
}

// Get returns the cached snapshot when present and fresh.
func (c *Cache) Get(targetKey string) (*metrics.RawFields, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[targetKey]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, targetKey)
		return nil, false
	}
	return entry.fields, true
}
