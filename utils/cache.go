package utils

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Hour
	// memCacheMaxEntries bounds the fallback map; expired entries are swept first.
	memCacheMaxEntries = 4096
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache stores short-lived values in Redis and falls back to process memory
// when no client is configured or a Redis call fails.
type Cache struct {
	rc  *redis.Client
	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

// NewCache returns a cache backed by rc; rc may be nil.
func NewCache(rc *redis.Client) *Cache {
	return &Cache{rc: rc, mem: make(map[string]memEntry), now: time.Now}
}

// GetBytes returns the value stored under key.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if c.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		b, err := c.rc.Get(ctx, key).Bytes()
		if err == nil {
			return b, true
		}
		if err != redis.Nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		// keys written while Redis was down live in memory
	}
	return c.memGet(key)
}

// SetBytes stores b under key for ttl (default one hour).
func (c *Cache) SetBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if c.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := c.rc.Set(ctx, key, b, ttl).Err()
		if err == nil {
			return
		}
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
	c.memSet(key, b, ttl)
}

// GetJSON decodes the value under key into v.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	b, ok := c.GetBytes(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

// SetJSON marshals v and stores the JSON bytes.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.SetBytes(ctx, key, b, ttl)
}

func (c *Cache) memGet(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.mem[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.mem, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) memSet(key string, b []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if len(c.mem) >= memCacheMaxEntries {
		for k, e := range c.mem {
			if !now.Before(e.expiresAt) {
				delete(c.mem, k)
			}
		}
		for k := range c.mem {
			if len(c.mem) < memCacheMaxEntries {
				break
			}
			delete(c.mem, k)
		}
	}
	c.mem[key] = memEntry{value: append([]byte(nil), b...), expiresAt: now.Add(ttl)}
}
