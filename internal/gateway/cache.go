package gateway

import "sync"

// MemoryCache is the process-lifetime fallback tier. One instance is created
// at startup and shared by every gateway; it is scoped to a single warm
// process and provides no cross-instance consistency.
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string][]byte
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get returns the cached payload for a resource, if any.
func (c *MemoryCache) Get(resourceName string) ([]byte, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	payload, ok := c.entries[resourceName]
	return payload, ok
}

// Set records the last-known-good payload for a resource.
func (c *MemoryCache) Set(resourceName string, payload []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	copied := make([]byte, len(payload))
	copy(copied, payload)
	c.entries[resourceName] = copied
}
