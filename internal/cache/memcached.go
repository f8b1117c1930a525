package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

const keyPrefix = "soil:"

// maxRelativeExp is the largest relative expiration memcached accepts (30 days).
const maxRelativeExp = 30 * 24 * 60 * 60

// MemcachedCache implements Cache using memcached. Values are JSON-encoded snapshots.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated server list.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		return nil, errors.New("memcached: at least one address is required")
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, false, err
	}
	item, err := c.client.Get(keyPrefix + key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Snapshot{}, false, nil
		}
		return models.Snapshot{}, false, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(item.Value, &snap); err != nil {
		return models.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Snapshot, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds clamps ttl to memcached's relative range, defaulting to one hour.
func expirationSeconds(ttl time.Duration) int32 {
	sec := int64(ttl / time.Second)
	if sec <= 0 || sec > maxRelativeExp {
		return 3600
	}
	return int32(sec)
}

// Ping checks if memcached is reachable.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes idle connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
