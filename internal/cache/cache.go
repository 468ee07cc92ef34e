// Package cache provides path-keyed caching of rendered views and the
// invalidation hook the domain actions call after every mutation.
//
// The contract is intentionally tiny: mutating actions only ever need
// Invalidate(path). The page cache itself is an in-process map — a single
// server instance is the deployment target, matching the embedded database.
package cache

import "sync"

// Invalidator is the write-side contract. Domain actions call Invalidate for
// every cached path that could render stale data after a write.
type Invalidator interface {
	Invalidate(path string)
}

// PageCache is a concurrency-safe, path-keyed byte cache.
// Zero value is not usable; call NewPageCache.
type PageCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewPageCache() *PageCache {
	return &PageCache{entries: make(map[string][]byte)}
}

// Get returns the cached payload for path, if present.
func (c *PageCache) Get(path string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.entries[path]
	return body, ok
}

// Put stores a copy of body under path. Copying keeps callers from mutating
// cached bytes after the fact.
func (c *PageCache) Put(path string, body []byte) {
	stored := make([]byte, len(body))
	copy(stored, body)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = stored
}

// Invalidate drops the entry for path. Missing paths are a no-op, so actions
// can invalidate unconditionally.
func (c *PageCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len reports the number of cached entries. Used in tests and debug logging.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ Invalidator = (*PageCache)(nil)
