// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"container/list"
	"sync"
)

// LRU is a fixed-capacity cache evicting the least recently used entry.
// A hit moves the entry to the most recently used position.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type lruEntry[V any] struct {
	key   string
	value V
}

// NewLRU creates an LRU cache with the given capacity. Capacity must be
// positive.
func NewLRU[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU[V]{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached value for key, marking it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToBack(elem)
	return elem.Value.(*lruEntry[V]).value, true
}

// Put stores value under key, evicting the least recently used entry when the
// cache is at capacity.
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*lruEntry[V]).value = value
		c.order.MoveToBack(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*lruEntry[V]).key)
		}
	}

	c.entries[key] = c.order.PushBack(&lruEntry[V]{key: key, value: value})
}

// Clear removes all entries. Intended for tests.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

// Len returns the number of entries currently held.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
