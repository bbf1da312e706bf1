package cache

import (
	"context"
	"errors"
	"time"
)

// Layered checks a fast front cache before a slower back cache.
// Back-cache hits are copied into the front cache with FrontTTL.
type Layered struct {
	Front    Cache
	Back     Cache
	FrontTTL time.Duration
}

// NewLayered creates a two-level cache.
func NewLayered(front, back Cache, frontTTL time.Duration) *Layered {
	return &Layered{Front: front, Back: back, FrontTTL: frontTTL}
}

// Get returns the front entry if present, otherwise the back entry.
// Front-cache errors fall through to the back cache.
func (l *Layered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, hit, err := l.Front.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}
	data, hit, err := l.Back.Get(ctx, key)
	if err != nil || !hit {
		return nil, false, err
	}
	_ = l.Front.Set(ctx, key, data, l.FrontTTL)
	return data, true, nil
}

// Set writes to both layers.
func (l *Layered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	frontTTL := l.FrontTTL
	if ttl > 0 && (frontTTL == 0 || ttl < frontTTL) {
		frontTTL = ttl
	}
	return errors.Join(l.Front.Set(ctx, key, data, frontTTL), l.Back.Set(ctx, key, data, ttl))
}

// Delete removes key from both layers.
func (l *Layered) Delete(ctx context.Context, key string) error {
	return errors.Join(l.Front.Delete(ctx, key), l.Back.Delete(ctx, key))
}

// Close closes both layers.
func (l *Layered) Close() error {
	return errors.Join(l.Front.Close(), l.Back.Close())
}

var _ Cache = (*Layered)(nil)
