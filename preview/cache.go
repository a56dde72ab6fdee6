package preview

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const metadataKeyPrefix = "preview:meta:"

// KV is the JSON cache the metadata cache is stored in.
type KV interface {
	GetJSON(ctx context.Context, key string, v interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
}

// MetadataCache remembers what a page advertised so a link shared again skips
// the HTML fetch. Images are not cached; every post stores its own file.
// A nil *MetadataCache is valid and caches nothing.
type MetadataCache struct {
	kv  KV
	ttl time.Duration
}

// NewMetadataCache stores entries in kv for ttl.
func NewMetadataCache(kv KV, ttl time.Duration) *MetadataCache {
	if kv == nil {
		return nil
	}
	return &MetadataCache{kv: kv, ttl: ttl}
}

// Get returns cached metadata for pageURL.
func (c *MetadataCache) Get(ctx context.Context, pageURL string) (Metadata, bool) {
	if c == nil {
		return Metadata{}, false
	}
	var meta Metadata
	if !c.kv.GetJSON(ctx, metadataKey(pageURL), &meta) || meta.ImageURL == "" {
		return Metadata{}, false
	}
	return meta, true
}

// Set caches meta for pageURL.
func (c *MetadataCache) Set(ctx context.Context, pageURL string, meta Metadata) {
	if c == nil {
		return
	}
	c.kv.SetJSON(ctx, metadataKey(pageURL), meta, c.ttl)
}

func metadataKey(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return metadataKeyPrefix + hex.EncodeToString(sum[:])
}
