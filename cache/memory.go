// Package cache provides caching implementations for Bastion decisions.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/bastion"
)

// Compile-time interface check.
var _ bastion.Cache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration. Entries are
// keyed by (tenant, subject, resource, action, store version); a policy
// mutation bumps the version, which orphans every older entry without
// touching the cache itself.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	dec       *bastion.Decision
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached decision for the request at the given version.
func (m *Memory) Get(_ context.Context, tenantID string, req *bastion.CheckRequest, version uint64) (*bastion.Decision, bool) {
	key := cacheKey(tenantID, req, version)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.dec, true
}

// Set stores a decision computed at the given version.
func (m *Memory) Set(_ context.Context, tenantID string, req *bastion.CheckRequest, version uint64, dec *bastion.Decision) {
	key := cacheKey(tenantID, req, version)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		dec:       dec,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateSubject removes all cached decisions for a subject across
// every version.
func (m *Memory) InvalidateSubject(_ context.Context, tenantID, subjectID string) {
	subKey := fmt.Sprintf("%s:%s:", tenantID, subjectID)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) >= len(subKey) && k[:len(subKey)] == subKey {
			delete(m.entries, k)
		}
	}
}

func cacheKey(tenantID string, req *bastion.CheckRequest, version uint64) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d",
		tenantID,
		req.Subject.ID,
		req.Resource,
		req.Action,
		version,
	)
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
