package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a resolved address is reused.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores resolved addresses. Only successful lookups are cached.
type Cache interface {
	Get(ctx context.Context, address string) (*Result, bool, error)
	Set(ctx context.Context, address string, r *Result, ttl time.Duration) error
}

// cacheKey normalizes address so trivially different spellings share an entry.
func cacheKey(address string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// RedisCache stores results as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache backed by client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, address string) (*Result, bool, error) {
	b, err := c.client.Get(ctx, cacheKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("geocode cache get: %w", err)
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, false, fmt.Errorf("geocode cache decode: %w", err)
	}
	return &r, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, address string, r *Result, ttl time.Duration) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("geocode cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(address), b, ttl).Err(); err != nil {
		return fmt.Errorf("geocode cache set: %w", err)
	}
	return nil
}

type memoryEntry struct {
	result  Result
	expires time.Time
}

// DefaultMemoryCacheSize bounds a MemoryCache created by NewMemoryCache.
const DefaultMemoryCacheSize = 10000

// MemoryCache is an in-process Cache holding at most a fixed number of
// entries. Expired entries are dropped on read and swept when the cache is
// full; if it is still full the entry closest to expiry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	limit   int
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache of DefaultMemoryCacheSize.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheSize(DefaultMemoryCacheSize)
}

// NewMemoryCacheSize creates an empty in-memory cache holding at most limit
// entries. A limit below 1 selects DefaultMemoryCacheSize.
func NewMemoryCacheSize(limit int) *MemoryCache {
	if limit < 1 {
		limit = DefaultMemoryCacheSize
	}
	return &MemoryCache{entries: make(map[string]memoryEntry), limit: limit, now: time.Now}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, address string) (*Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(address)
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	r := e.result.clone()
	return &r, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, address string, r *Result, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(address)
	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.limit {
		c.makeRoom(now)
	}
	c.entries[key] = memoryEntry{result: r.clone(), expires: now.Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// makeRoom frees at least one slot. Callers hold c.mu.
func (c *MemoryCache) makeRoom(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.limit {
		return
	}
	var oldest string
	var oldestExp time.Time
	for k, e := range c.entries {
		if oldest == "" || e.expires.Before(oldestExp) {
			oldest, oldestExp = k, e.expires
		}
	}
	delete(c.entries, oldest)
}
