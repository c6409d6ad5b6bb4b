// SPDX-FileCopyrightText: Copyright 2025 Permamind
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLGetPut(t *testing.T) {
	t.Parallel()

	c := NewTTL[string](5 * time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("q", "result")
	got, ok := c.Get("q")
	require.True(t, ok)
	assert.Equal(t, "result", got)
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	c := NewTTL[string](5 * time.Minute)
	now := time.Now()
	c.setClock(func() time.Time { return now })

	c.Put("q", "result")

	// Still fresh just before the deadline.
	now = now.Add(5*time.Minute - time.Second)
	_, ok := c.Get("q")
	assert.True(t, ok)

	// Expired entries are evicted lazily on read.
	now = now.Add(2 * time.Second)
	_, ok = c.Get("q")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLClear(t *testing.T) {
	t.Parallel()

	c := NewTTL[int](time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestLRUEviction(t *testing.T) {
	t.Parallel()

	c := NewLRU[int](3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", 4)
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok)

	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "expected %s to survive", key)
	}
}

func TestLRUUpdateExisting(t *testing.T) {
	t.Parallel()

	c := NewLRU[int](2)
	c.Put("a", 1)
	c.Put("a", 2)
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestLRUCapacityBound(t *testing.T) {
	t.Parallel()

	c := NewLRU[int](100)
	for i := 0; i < 250; i++ {
		c.Put(fmt.Sprintf("skill-%d", i), i)
	}
	assert.Equal(t, 100, c.Len())

	// The most recent 100 survive.
	_, ok := c.Get("skill-249")
	assert.True(t, ok)
	_, ok = c.Get("skill-0")
	assert.False(t, ok)
}

func TestLRUClear(t *testing.T) {
	t.Parallel()

	c := NewLRU[int](2)
	c.Put("a", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
