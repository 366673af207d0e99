package redis

// Package redis provides the Redis-backed storage area for the "shared"
// persistence mode, where several processes of the same origin share one
// snapshot.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/foyerhq/foyer/internal/ports"
)

// Ensure compile-time conformance to ports.
var _ ports.StorageArea = (*Area)(nil)

// Area is a Redis-based storage area. Keys are namespaced with a prefix so
// several origins can share one Redis.
type Area struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewArea creates a Redis storage area with the default key prefix and no
// expiry.
func NewArea(client redis.UniversalClient) *Area {
	return &Area{
		client: client,
		prefix: "foyer:",
	}
}

// NewAreaWithPrefix creates a Redis storage area with a custom key prefix
// and a TTL applied on every write. A zero ttl means keys never expire.
func NewAreaWithPrefix(client redis.UniversalClient, prefix string, ttl time.Duration) *Area {
	return &Area{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns the value under key, or ports.ErrNotFound when absent.
func (a *Area) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ports.ErrNotFound
	}

	data, err := a.client.Get(ctx, a.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set overwrites the value under key, refreshing the area TTL when one is
// configured.
func (a *Area) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	if err := a.client.Set(ctx, a.prefix+key, value, a.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (a *Area) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}

	if err := a.client.Del(ctx, a.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection, for startup checks.
func (a *Area) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}
