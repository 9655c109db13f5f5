package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Vinay1094/kirana-store-automation/internal/domain"
)

// cacheItem represents a single cached resolution with expiration
type cacheItem struct {
	Result     *domain.OrderResolutionResult
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory result cache with TTL support
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
	}

	// Start cleanup goroutine to remove expired entries every 10 minutes
	go cache.cleanup()

	return cache
}

// Get retrieves a cached resolution result by key
func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.OrderResolutionResult, error) {
	c.mutex.RLock()
	item, found := c.data[key]
	c.mutex.RUnlock()

	if !found {
		return nil, domain.ErrCacheMiss
	}

	if time.Now().After(item.Expiration) {
		c.mutex.Lock()
		delete(c.data, key)
		c.mutex.Unlock()
		return nil, domain.ErrCacheMiss
	}

	return item.Result, nil
}

// Set stores a resolution result with the given TTL
func (c *MemoryCache) Set(ctx context.Context, key string, result *domain.OrderResolutionResult, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Result:     result,
		Expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a key from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists reports whether a key is present and not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	item, found := c.data[key]
	c.mutex.RUnlock()

	if !found {
		return false, nil
	}

	if time.Now().After(item.Expiration) {
		c.mutex.Lock()
		delete(c.data, key)
		c.mutex.Unlock()
		return false, nil
	}

	return true, nil
}

// Size returns the number of entries currently in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.data)
}

// Clear removes all entries from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheItem)
}

// cleanup periodically removes expired entries
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.Expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}
