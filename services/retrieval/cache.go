// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"sync"
	"time"
)

// Namespace partitions cache keys by use. A typed two-level key prevents
// unrelated cache uses sharing one store from colliding on raw strings.
type Namespace string

const (
	// NamespaceQuery memoizes (query -> assembled context + chunks).
	NamespaceQuery Namespace = "query"

	// NamespaceUserHistory remembers the last message seen per user.
	NamespaceUserHistory Namespace = "user_history"
)

// Key is a namespaced cache key.
type Key struct {
	Namespace Namespace
	ID        string
}

// QueryKey builds a key in the query namespace.
func QueryKey(query string) Key {
	return Key{Namespace: NamespaceQuery, ID: query}
}

// UserHistoryKey builds a key in the user-history namespace.
func UserHistoryKey(userID string) Key {
	return Key{Namespace: NamespaceUserHistory, ID: userID}
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a general-purpose ephemeral key-value store with a fixed TTL.
//
// Entries are lazily evicted: an expired entry is removed on the Get that
// observes it, never by a background sweeper. A TTL of zero or less disables
// the cache entirely (Set becomes a no-op). Safe for concurrent use; a single
// coarse lock is enough at this contention level.
type TTLCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[Key]cacheEntry
}

// NewTTLCache creates a cache with the given TTL.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Key]cacheEntry),
	}
}

// Get returns the value for key, or (nil, false) on a miss. An entry past its
// TTL counts as a miss and is removed.
func (c *TTLCache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key. No-op when the TTL disables caching.
func (c *TTLCache) Set(key Key, value any) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Clear drops every entry.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]cacheEntry)
}

// Len reports the number of stored entries, expired or not. Test helper.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
