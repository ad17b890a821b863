// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// InvalidationHook is invoked after the cache has been cleared through
// Invalidate. The reason is a short free-form tag used for logging.
type InvalidationHook func(reason string)

// Cache is a bounded, thread-safe cache whose entries expire after a fixed
// TTL. Eviction and expiry are delegated to golang-lru's expirable LRU.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
	ttl time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	hookMu sync.RWMutex
	hooks  []InvalidationHook

	lastInvalidated atomic.Int64
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits            int64     `json:"hits"`
	Misses          int64     `json:"misses"`
	Evictions       int64     `json:"evictions"`
	TotalKeys       int64     `json:"total_keys"`
	LastInvalidated time.Time `json:"last_invalidated,omitempty"`
}

// New creates a cache holding at most size entries for ttl each.
// A size of zero means unbounded; a ttl of zero means entries never expire.
//
// Example:
//
//	c := cache.New[string, float64](10000, time.Hour)
//	c.Set("sim:cosine:1:2", 0.97)
//	if v, ok := c.Get("sim:cosine:1:2"); ok {
//	    // use v
//	}
func New[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{ttl: ttl}
	c.lru = expirable.NewLRU[K, V](size, func(K, V) {
		c.evictions.Add(1)
	}, ttl)
	return c
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores value under key with the cache TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. Concurrent callers may compute the same key twice; the last
// writer wins, which is fine for pure values.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Clear removes all entries without firing invalidation hooks.
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}

// OnInvalidate registers a hook fired by Invalidate.
func (c *Cache[K, V]) OnInvalidate(hook InvalidationHook) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Invalidate clears the cache and notifies registered hooks.
func (c *Cache[K, V]) Invalidate(reason string) {
	c.lru.Purge()
	c.lastInvalidated.Store(time.Now().UnixNano())

	c.hookMu.RLock()
	hooks := make([]InvalidationHook, len(c.hooks))
	copy(hooks, c.hooks)
	c.hookMu.RUnlock()

	for _, hook := range hooks {
		hook(reason)
	}
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache[K, V]) GetStats() Stats {
	s := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		TotalKeys: int64(c.lru.Len()),
	}
	if ns := c.lastInvalidated.Load(); ns > 0 {
		s.LastInvalidated = time.Unix(0, ns)
	}
	return s
}

// HitRate returns the cache hit rate as a percentage.
func (c *Cache[K, V]) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}

// TTL returns the configured entry lifetime.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// GenerateKey creates a cache key from the method name and parameters
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
