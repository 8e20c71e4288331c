package cache

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader serves values from a Cache and collapses concurrent misses for the
// same key into a single call of the load function.
//
// Forget and Purge advance a generation counter. A load that started before
// the invalidation still returns its value to its callers but does not store
// it, and later misses start a fresh load instead of joining the stale one.
type Loader[T any] struct {
	cache Cache[T]
	sf    singleflight.Group

	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c, gens: make(map[string]uint64)}
}

// generation returns the current (epoch, key generation) pair for key.
func (l *Loader[T]) generation(key string) (uint64, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.epoch, l.gens[key]
}

// Get returns the cached value for key or calls load and caches its result.
// Failed loads are not cached.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	epoch, gen := l.generation(key)
	flight := key + "#" + strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)

	v, err, _ := l.sf.Do(flight, func() (interface{}, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.epoch == epoch && l.gens[key] == gen {
			l.cache.Set(key, v)
		}
		l.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Forget drops key from the cache. Loads of key already in flight are not
// stored.
func (l *Loader[T]) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gens[key]++
	l.cache.Delete(key)
}

// Purge drops every key. Loads already in flight are not stored.
func (l *Loader[T]) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++
	l.gens = make(map[string]uint64)
	l.cache.Purge()
}
