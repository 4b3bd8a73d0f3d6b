// Package cache holds the Redis-backed stores used by auth and the dashboard.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent.
var ErrMiss = errors.New("cache miss")

// JSONCache stores JSON-encoded values under a key prefix.
type JSONCache struct {
	client *redis.Client
	prefix string
}

// NewJSONCache builds a cache; a nil client turns every lookup into a miss.
func NewJSONCache(client *redis.Client, prefix string) *JSONCache {
	return &JSONCache{client: client, prefix: prefix}
}

// Get decodes the value stored under key into dest.
func (c *JSONCache) Get(ctx context.Context, key string, dest any) error {
	if c == nil || c.client == nil {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Set stores value under key for ttl.
func (c *JSONCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}

// Delete drops key.
func (c *JSONCache) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.prefix+key).Err()
}

// TokenRevocations remembers logged-out token ids until the token would have expired.
type TokenRevocations struct {
	client *redis.Client
	prefix string
}

// NewTokenRevocations builds the revocation list.
func NewTokenRevocations(client *redis.Client, prefix string) *TokenRevocations {
	if prefix == "" {
		prefix = "auth:revoked:"
	}
	return &TokenRevocations{client: client, prefix: prefix}
}

// Revoke marks tokenID as revoked; a non-positive ttl is a no-op since the token is already expired.
func (r *TokenRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if r.client == nil || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err()
}

// IsRevoked reports whether tokenID was revoked.
func (r *TokenRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
