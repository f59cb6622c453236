package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ErrCacheMiss is returned by Get when no live entry exists for the token.
var ErrCacheMiss = errors.New("token not in cache")

// MemoryTokenCache implements TokenCache with ttlcache. Entries expire on
// their own at the credential's expiry, so a stale positive can never
// outlive the token itself.
type MemoryTokenCache struct {
	cache *ttlcache.Cache[string, *Entry]
}

// NewMemoryTokenCache creates an in-memory token cache with automatic
// cleanup.
func NewMemoryTokenCache() *MemoryTokenCache {
	c := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *Entry](),
	)
	go c.Start()

	return &MemoryTokenCache{cache: c}
}

// Set stores the entry under the hashed token value until the credential
// expires. Entries already past expiry are not stored.
func (m *MemoryTokenCache) Set(_ context.Context, tokenValue string, entry *Entry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	m.cache.Set(HashToken(tokenValue), entry, ttl)
	return nil
}

// Get returns the cached entry or ErrCacheMiss.
func (m *MemoryTokenCache) Get(_ context.Context, tokenValue string) (*Entry, error) {
	item := m.cache.Get(HashToken(tokenValue))
	if item == nil {
		return nil, ErrCacheMiss
	}
	return item.Value(), nil
}

// Delete removes the entry for the token, if any.
func (m *MemoryTokenCache) Delete(_ context.Context, tokenValue string) error {
	m.cache.Delete(HashToken(tokenValue))
	return nil
}

// Clear removes every entry.
func (m *MemoryTokenCache) Clear(_ context.Context) error {
	m.cache.DeleteAll()
	return nil
}

// Close stops the cleanup goroutine.
func (m *MemoryTokenCache) Close() error {
	m.cache.Stop()
	return nil
}

var _ TokenCache = (*MemoryTokenCache)(nil)
