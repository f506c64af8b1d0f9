package mapping

// Cache is the run-scoped resolution cache. It grows monotonically: entries
// are added when a decision is reached by any path and are never evicted,
// so a key that resolved (or failed to resolve) once never repeats the work.
// The pipeline is single-threaded, so no locking is needed; a parallel
// caller would have to serialize interactive resolution per key.
type Cache struct {
	entries map[Key]Decision
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]Decision)}
}

// Get returns the cached decision for key, if any.
func (c *Cache) Get(key Key) (Decision, bool) {
	d, ok := c.entries[key]
	return d, ok
}

// Put records a decision for key.
func (c *Cache) Put(key Key, d Decision) {
	c.entries[key] = d
}

// Len returns the number of cached decisions.
func (c *Cache) Len() int {
	return len(c.entries)
}
