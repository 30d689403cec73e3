// Package cache holds the read-through plumbing shared by the course caches.
package cache

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source is the slow path behind a cache.
type Source[T any] func(ctx context.Context, key string) (T, error)

// Backend is the fast path. Lookup reports a miss with false; Fill errors are the
// backend's to report and never fail a read.
type Backend[T any] interface {
	Lookup(ctx context.Context, key string) (T, bool)
	Fill(ctx context.Context, key string, value T, ttl time.Duration)
}

// ReadThrough serves reads from a Backend and coalesces concurrent misses for the
// same key into one Source call. Source errors are not cached.
type ReadThrough[T any] struct {
	backend Backend[T]
	source  Source[T]
	ttl     *TTL
	group   singleflight.Group
}

func NewReadThrough[T any](backend Backend[T], source Source[T], ttl *TTL) *ReadThrough[T] {
	return &ReadThrough[T]{backend: backend, source: source, ttl: ttl}
}

func (r *ReadThrough[T]) Get(ctx context.Context, key string) (T, error) {
	if v, ok := r.backend.Lookup(ctx, key); ok {
		return v, nil
	}
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// a concurrent leader may have filled it already
		if v, ok := r.backend.Lookup(ctx, key); ok {
			return v, nil
		}
		v, err := r.source(ctx, key)
		if err != nil {
			return nil, err
		}
		r.backend.Fill(ctx, key, v, r.ttl.Next())
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// TTL hands out expirations spread by up to a tenth of the base so entries
// loaded together do not expire together.
type TTL struct {
	base time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTTL(base time.Duration) *TTL {
	return &TTL{base: base, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Next returns the base plus jitter, or 0 for a non-positive base.
func (t *TTL) Next() time.Duration {
	if t.base <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.base + time.Duration(t.rnd.Int63n(int64(t.base)/10+1))
}
