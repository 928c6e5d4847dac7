package ingest

import (
	"sync"
	"time"
)

type dedupeEntry struct {
	key string
	ts  time.Time
}

// dedupeCache keeps a fixed-size set of recently ingested content hashes.
// It is a cheap first filter ahead of the store's hash index: most feed
// polls return the same items as the previous poll.
type dedupeCache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []dedupeEntry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func newDedupeCache(capacity int, ttl time.Duration) *dedupeCache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &dedupeCache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]dedupeEntry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// isSeen reports whether key was observed inside the ttl window. It does not
// record the key; markSeen does.
func (c *dedupeCache) isSeen(key string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.items[key]; ok {
		return now.Sub(ts) <= c.ttl
	}
	return false
}

func (c *dedupeCache) markSeen(key string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, dedupeEntry{key: key, ts: now})
	c.compact(now)
}

func (c *dedupeCache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok && ts == oldest.ts {
			delete(c.items, oldest.key)
		}
	}
}
