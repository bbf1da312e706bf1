// Package cache provides the byte-oriented cache used by reqscan.
//
// Two things are cached across runs: the import set extracted from a file,
// keyed by a fingerprint of its contents, and compatibility probe results,
// keyed by prober, package and target Python version. Registry HTTP
// responses go through the same interface via [integrations.Client].
//
// Backends:
//   - [FileCache]: JSON entry files under ~/.cache/reqscan (CLI default)
//   - [RedisCache]: shared cache for CI fleets (--cache-url redis://...)
//   - [MemoryCache]: bounded in-process LRU
//   - [NullCache]: disables caching (--no-cache)
//
// [Layered] puts a fast cache in front of a slower one.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is a TTL-aware byte store. A TTL of 0 means entries never expire.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key for ttl.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// GetJSON reads key and unmarshals it into v. A corrupt entry is reported
// as a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
