// Package servicecache provides a Redis-backed runtimeutil.Cache bounding
// the module host's service lookup cache (framework.service.cache.size).
// Entries beyond the configured size are evicted oldest-first so the cache
// never grows past its bound.
package servicecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iruldev/modhost/internal/runtimeutil"
)

// Config parameterises the Redis-backed service cache.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	// MaxEntries bounds the number of keys this cache tracks; the oldest
	// key (by insertion order) is evicted once the bound is reached.
	MaxEntries int
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 256
	}
	return c
}

// Cache implements runtimeutil.Cache over a go-redis client, additionally
// tracking insertion order client-side so it can enforce MaxEntries with an
// oldest-first eviction policy (Redis alone has no notion of "this cache's
// bound" shared across keys).
type Cache struct {
	rdb     *redis.Client
	keyPfx  string
	maxSize int

	mu    sync.Mutex
	order []string // oldest first
}

// New creates a Redis-backed service cache, validating connectivity.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	cfg = cfg.withDefaults()
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("servicecache: connect: %w", err)
	}
	return &Cache{rdb: rdb, keyPfx: "svc:", maxSize: cfg.MaxEntries}, nil
}

// NewFromClient builds a service cache around an already-connected client,
// for callers (tests, shared connection pools) that construct the client
// themselves.
func NewFromClient(rdb *redis.Client, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Cache{rdb: rdb, keyPfx: "svc:", maxSize: maxEntries}
}

func (c *Cache) Close() error { return c.rdb.Close() }

// Get implements runtimeutil.Cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, c.keyPfx+key).Bytes()
	if err == redis.Nil {
		return nil, runtimeutil.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("servicecache: get %q: %w", key, err)
	}
	return val, nil
}

// Set implements runtimeutil.Cache, evicting the oldest tracked key once
// the cache is at MaxEntries and the key being set is new.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.keyPfx+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("servicecache: set %q: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.order {
		if k == key {
			return nil
		}
	}
	c.order = append(c.order, key)
	if len(c.order) <= c.maxSize {
		return nil
	}
	evict := c.order[0]
	c.order = c.order[1:]
	_ = c.rdb.Del(context.WithoutCancel(ctx), c.keyPfx+evict).Err()
	return nil
}

// Delete implements runtimeutil.Cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.keyPfx+key).Err(); err != nil {
		return fmt.Errorf("servicecache: delete %q: %w", key, err)
	}
	c.mu.Lock()
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// Exists implements runtimeutil.Cache.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.keyPfx+key).Result()
	if err != nil {
		return false, fmt.Errorf("servicecache: exists %q: %w", key, err)
	}
	return n > 0, nil
}

var _ runtimeutil.Cache = (*Cache)(nil)
