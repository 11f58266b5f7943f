// Copyright © 2024 OpenIM. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fetchcache collects concrete fetch.Cache backings beyond the
// package's own in-memory default: a size-bounded local cache and a
// Redis-backed remote cache, optionally layered together.
package fetchcache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openimsdk/fetchkit/pkg/fetch"
)

// LRUCache is a size-bounded fetch.Cache backed by a single shared
// golang-lru instance. Unlike fetch.EmptyInMemoryCache, it does not give
// every Put its own immutable snapshot: capacity bounds and cross-run reuse
// are the point of this cache, so Put mutates the shared LRU and returns the
// same handle. A Round's CacheSnapshot taken against an LRUCache therefore
// reflects live, mutable state rather than a point-in-time copy — callers
// that need the snapshot guarantee should run against
// fetch.EmptyInMemoryCache instead of this cache directly.
type LRUCache struct {
	mu  *sync.RWMutex
	lru *lru.Cache[fetch.DataSourceIdentity, any]
}

// NewLRUCache builds an LRUCache holding at most size entries, evicting the
// least recently used entry once full.
func NewLRUCache(size int) (*LRUCache, error) {
	l, err := lru.New[fetch.DataSourceIdentity, any](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{mu: &sync.RWMutex{}, lru: l}, nil
}

func (c *LRUCache) Get(key fetch.DataSourceIdentity) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Get(key)
}

func (c *LRUCache) Put(key fetch.DataSourceIdentity, value any) fetch.Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, value)
	return c
}

// Len reports the number of entries currently resident.
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

var _ fetch.Cache = (*LRUCache)(nil)
