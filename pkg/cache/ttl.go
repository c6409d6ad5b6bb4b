// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the two client-side caches used by the registry
// client: a TTL map for search results and an LRU for skill metadata. Both are
// safe for concurrent use and expose Clear for tests.
package cache

import (
	"sync"
	"time"
)

// TTL is a map cache whose entries expire after a fixed duration. Expired
// entries are evicted lazily on read.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]ttlEntry[V]
	now     func() time.Time
}

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// NewTTL creates a TTL cache with the given entry lifetime.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:     ttl,
		entries: make(map[string]ttlEntry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Put stores value under key with a fresh expiry.
func (c *TTL[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[V]{value: value, expires: c.now().Add(c.ttl)}
}

// Clear removes all entries. Intended for tests.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ttlEntry[V])
}

// Len returns the number of entries currently held, including any that have
// expired but not yet been evicted.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// setClock overrides the clock. Test hook.
func (c *TTL[V]) setClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
