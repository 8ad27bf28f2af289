package dedupe

import (
	"sync"
	"time"
)

// Cache keeps a bounded set of recently ingested document IDs so the
// streaming worker can skip articles it already inserted inside the ttl
// window.
//
// Bounding works by generation rotation: marks land in the fresh
// generation, and once it reaches capacity it becomes the stale generation,
// dropping whatever the previous stale one held. Memory therefore never
// exceeds two generations, and at least the most recent capacity marks are
// always retained. Expired entries are filtered on lookup rather than
// swept.
type Cache struct {
	mu       sync.Mutex
	fresh    map[string]time.Time
	stale    map[string]time.Time
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided per-generation capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		fresh:    make(map[string]time.Time, capacity),
		stale:    map[string]time.Time{},
		capacity: capacity,
		ttl:      ttl,
	}
}

// IsSeen reports whether the id was observed inside the ttl window. It does
// not record the id; use MarkSeen for that.
func (c *Cache) IsSeen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.fresh[id]; ok && time.Since(at) <= c.ttl {
		return true
	}
	if at, ok := c.stale[id]; ok && time.Since(at) <= c.ttl {
		return true
	}
	return false
}

// MarkSeen records that an id has been ingested.
func (c *Cache) MarkSeen(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fresh[id] = time.Now()
	if len(c.fresh) >= c.capacity {
		c.stale = c.fresh
		c.fresh = make(map[string]time.Time, c.capacity)
	}
}
