// Package dedup provides the process-wide bounded cache of displayed
// message ids, shared across all monitored accounts.
package dedup

import "sync"

const (
	DefaultCeiling = 100
	DefaultFloor   = 50
)

// Cache is a bounded set with deterministic insertion-order eviction.
// When an insert pushes the size past the ceiling, the oldest entries are
// bulk-evicted down to the floor. Not persisted; reset on restart.
type Cache struct {
	mu      sync.Mutex
	ids     map[string]struct{}
	order   []string
	ceiling int
	floor   int
}

// NewCache creates a cache with the given ceiling and floor. Non-positive or
// inconsistent bounds fall back to the defaults.
func NewCache(ceiling, floor int) *Cache {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if floor <= 0 || floor >= ceiling {
		floor = ceiling / 2
	}
	return &Cache{
		ids:     make(map[string]struct{}),
		ceiling: ceiling,
		floor:   floor,
	}
}

// Observe records id as seen. Returns true when the id was not already
// cached, i.e. the caller may display it.
func (c *Cache) Observe(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.ids[id]; seen {
		return false
	}

	c.ids[id] = struct{}{}
	c.order = append(c.order, id)

	if len(c.order) > c.ceiling {
		evict := len(c.order) - c.floor
		for _, old := range c.order[:evict] {
			delete(c.ids, old)
		}
		c.order = append(c.order[:0:0], c.order[evict:]...)
	}

	return true
}

// Contains reports whether id is currently cached.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, seen := c.ids[id]
	return seen
}

// Len returns the current number of cached ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
