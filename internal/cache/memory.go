// Package cache holds the response cache that sits in front of the data
// repositories: per-entry TTL, prefix invalidation, an in-process store and
// a Redis-backed one.
package cache

import (
	"strings"
	"sync"
	"time"

	"grievance/internal/metrics"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-process TTL cache shared by all repositories. Expired
// entries are never returned: a read of an expired key removes it and
// reports a miss.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	now        func() time.Time
	maxEntries int
	metrics    *metrics.Metrics
}

// MemoryOption configures Memory.
type MemoryOption func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMaxEntries bounds the number of entries. When the bound is reached,
// expired entries are purged first and then the entry closest to expiry is
// evicted. Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithMetrics records hits, misses and evictions.
func WithMetrics(mt *metrics.Metrics) MemoryOption {
	return func(m *Memory) { m.metrics = mt }
}

// NewMemory creates an empty Memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{entries: make(map[string]entry), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Get returns the value stored under key if it is present and unexpired.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.metrics.CacheMiss()
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		m.metrics.CacheEvicted(1)
		m.metrics.CacheMiss()
		return nil, false
	}
	m.metrics.CacheHit()
	return e.value, true
}

// Set stores value under key until now+ttl. A non-positive ttl stores nothing
// and removes any previous entry.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		delete(m.entries, key)
		return
	}
	now := m.now()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.makeRoom(now)
	}
	m.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

// Delete removes one entry.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Clear removes every entry whose key starts with prefix and returns how
// many were removed. An empty prefix clears everything.
func (m *Memory) Clear(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// PurgeExpired removes all expired entries and returns how many were removed.
func (m *Memory) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purge(m.now())
}

func (m *Memory) purge(now time.Time) int {
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	m.metrics.CacheEvicted(n)
	return n
}

func (m *Memory) makeRoom(now time.Time) {
	if m.purge(now) > 0 {
		return
	}
	var (
		victim string
		soon   time.Time
	)
	for k, e := range m.entries {
		if victim == "" || e.expiresAt.Before(soon) {
			victim, soon = k, e.expiresAt
		}
	}
	if victim != "" {
		delete(m.entries, victim)
		m.metrics.CacheEvicted(1)
	}
}
