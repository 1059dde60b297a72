package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/agent-dashboard/internal/models"
)

// Cache stores resolved weather reports keyed by normalized location.
// Get returns ok=false on miss or expiry; Set stores with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.WeatherReport, bool, error)
	Set(ctx context.Context, key string, value models.WeatherReport, ttl time.Duration) error
}

type memoryEntry struct {
	value     models.WeatherReport
	expiresAt time.Time
}

// InMemoryCache is the default backend: a mutex-guarded map with TTL
// expiry checked on access. Expired entries are removed lazily.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]memoryEntry
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[string]memoryEntry)}
}

// Get returns the cached report if present and unexpired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.WeatherReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return models.WeatherReport{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.WeatherReport{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the report; it expires after ttl.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.WeatherReport, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}
