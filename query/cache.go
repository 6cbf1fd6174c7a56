package query

import (
	"sync"
)

// Cache memoizes Plans keyed by (mode, query, ignore_punct) (spec.md §5:
// "a global regex cache is optional but must be keyed by (mode, query,
// ignore_punct)"), bounded to a fixed capacity. It exists because
// constructing and compiling a Plan is pure CPU work independent of the
// store, so identical repeat queries — common in an interactive search
// UI — needn't pay the regex-compile cost twice.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]Plan
	order    []string // insertion order, for capacity-bound FIFO eviction
}

// NewCache returns a Cache bounded to capacity entries. A non-positive
// capacity disables caching: Get always misses and Put is a no-op.
func NewCache(capacity int) *Cache {
	return &Cache{capacity: capacity, entries: make(map[string]Plan)}
}

func cacheKey(rawQuery string, mode Mode, ignorePunct bool) string {
	flag := "0"
	if ignorePunct {
		flag = "1"
	}
	return mode.String() + "\x00" + flag + "\x00" + rawQuery
}

// Get returns a cached Plan for the given request, if present.
func (c *Cache) Get(rawQuery string, mode Mode, ignorePunct bool) (Plan, bool) {
	if c.capacity <= 0 {
		return Plan{}, false
	}
	key := cacheKey(rawQuery, mode, ignorePunct)
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	return p, ok
}

// Put stores plan under the given request's key, evicting the oldest
// entry if the cache is at capacity.
func (c *Cache) Put(rawQuery string, mode Mode, ignorePunct bool, plan Plan) {
	if c.capacity <= 0 {
		return
	}
	key := cacheKey(rawQuery, mode, ignorePunct)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = plan
	c.order = append(c.order, key)
}

// BuildCached is Build, memoized through c.
func BuildCached(c *Cache, rawQuery string, mode Mode, ignorePunct bool) Plan {
	if c == nil {
		return Build(rawQuery, mode, ignorePunct)
	}
	if plan, ok := c.Get(rawQuery, mode, ignorePunct); ok {
		return plan
	}
	plan := Build(rawQuery, mode, ignorePunct)
	c.Put(rawQuery, mode, ignorePunct, plan)
	return plan
}
