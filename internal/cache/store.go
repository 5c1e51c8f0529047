package cache

import (
	"context"
	"time"
)

// Store is the cache contract used by repositories for values of type T.
type Store[T any] interface {
	// Get returns the value under key and whether it was found unexpired.
	Get(ctx context.Context, key string) (T, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	// Delete removes one key.
	Delete(ctx context.Context, key string) error
	// Clear removes every key starting with prefix.
	Clear(ctx context.Context, prefix string) error
}

// Cloner is implemented by values holding slices or maps. The memory store
// keeps a copy on Set and returns a copy on Get, so callers never share
// backing arrays with the cache.
type Cloner[T any] interface {
	Clone() T
}

func copyOf[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

// typed adapts the shared Memory cache to Store[T]. Entries holding a value
// of another type are reported as misses.
type typed[T any] struct {
	m *Memory
}

// Typed returns a Store[T] view of m. All views share the same entries, so
// clearing a prefix through one view affects every view.
func Typed[T any](m *Memory) Store[T] {
	return typed[T]{m: m}
}

func (t typed[T]) Get(_ context.Context, key string) (T, bool, error) {
	var zero T
	v, ok := t.m.Get(key)
	if !ok {
		return zero, false, nil
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false, nil
	}
	return copyOf(tv), true, nil
}

func (t typed[T]) Set(_ context.Context, key string, value T, ttl time.Duration) error {
	t.m.Set(key, copyOf(value), ttl)
	return nil
}

func (t typed[T]) Delete(_ context.Context, key string) error {
	t.m.Delete(key)
	return nil
}

func (t typed[T]) Clear(_ context.Context, prefix string) error {
	t.m.Clear(prefix)
	return nil
}
