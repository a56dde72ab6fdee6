package utils

import (
	"context"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers logged-out tokens until they would have expired anyway.
type TokenBlacklist struct {
	cache *Cache
}

// NewTokenBlacklist stores revocations in cache.
func NewTokenBlacklist(cache *Cache) *TokenBlacklist {
	return &TokenBlacklist{cache: cache}
}

// Revoke blacklists tokenID until expiresAt. Already expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	b.cache.SetBytes(ctx, blacklistPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked reports whether tokenID was revoked before its natural expiration.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) bool {
	_, ok := b.cache.GetBytes(ctx, blacklistPrefix+tokenID)
	return ok
}
