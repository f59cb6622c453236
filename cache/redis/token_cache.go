// Package redis provides the Redis-backed TokenCache used when the engine
// runs with more than one replica behind a load balancer and a shared
// validation cache is wanted. Selected by config; the in-memory cache is the
// default.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coderepojon/authcore/cache"
)

// TokenCache implements cache.TokenCache on a Redis client.
type TokenCache struct {
	client *redis.Client
	prefix string
}

// NewTokenCache creates a Redis token cache. prefix namespaces the keys so
// several deployments can share one Redis.
func NewTokenCache(client *redis.Client, prefix string) *TokenCache {
	return &TokenCache{client: client, prefix: prefix}
}

func (r *TokenCache) key(tokenValue string) string {
	return fmt.Sprintf("%s:token:%s", r.prefix, cache.HashToken(tokenValue))
}

// Set stores the entry as JSON with the credential's remaining lifetime as
// the key TTL.
func (r *TokenCache) Set(ctx context.Context, tokenValue string, entry *cache.Entry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := r.client.Set(ctx, r.key(tokenValue), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set token in redis: %w", err)
	}
	return nil
}

// Get returns the cached entry or cache.ErrCacheMiss.
func (r *TokenCache) Get(ctx context.Context, tokenValue string) (*cache.Entry, error) {
	payload, err := r.client.Get(ctx, r.key(tokenValue)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get token from redis: %w", err)
	}
	var entry cache.Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

// Delete removes the entry for the token, if any.
func (r *TokenCache) Delete(ctx context.Context, tokenValue string) error {
	return r.client.Del(ctx, r.key(tokenValue)).Err()
}

// Clear removes every entry under this cache's prefix.
func (r *TokenCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, fmt.Sprintf("%s:token:*", r.prefix), 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the underlying client.
func (r *TokenCache) Close() error {
	return r.client.Close()
}

var _ cache.TokenCache = (*TokenCache)(nil)
