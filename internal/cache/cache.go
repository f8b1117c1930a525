package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

// SnapshotKey is the key under which the poller publishes the rendered dashboard.
const SnapshotKey = "dashboard"

// Cache stores rendered dashboard snapshots so API replicas can serve the poller's latest state.
// Get returns (snapshot, true, nil) on hit and (zero, false, nil) on miss or expiry.
type Cache interface {
	Get(ctx context.Context, key string) (models.Snapshot, bool, error)
	Set(ctx context.Context, key string, value models.Snapshot, ttl time.Duration) error
}

// Pinger is implemented by network-backed caches for health checks.
type Pinger interface {
	Ping() error
}

// PingFunc returns c's health probe, or nil when c has nothing to reach.
func PingFunc(c Cache) func() error {
	if p, ok := c.(Pinger); ok {
		return p.Ping
	}
	return nil
}

// InMemoryCache implements Cache with a mutex-guarded map and TTL expiry on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

type cacheEntry struct {
	value     models.Snapshot
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get removes expired entries on access.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return models.Snapshot{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.Snapshot{}, false, nil
	}
	return entry.value, true, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Snapshot, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}
