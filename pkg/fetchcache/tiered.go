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

package fetchcache

import (
	"context"
	"sync"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/tools/log"
	"github.com/redis/go-redis/v9"
)

// TieredCache checks a bounded local cache before falling back to a remote
// one, and fills the local cache on a remote hit. It subscribes to a Redis
// pub/sub topic to evict entries the local tier would otherwise serve stale
// once another process updates the remote tier.
type TieredCache struct {
	local *LRUCache

	mu     sync.RWMutex
	remote fetch.Cache
}

// NewTieredCache layers local in front of remote. If rdb and topic are
// non-empty, invalidation notices published to topic evict matching entries
// from the local tier.
func NewTieredCache(local *LRUCache, remote fetch.Cache, rdb redis.UniversalClient, topic string) *TieredCache {
	t := &TieredCache{local: local, remote: remote}
	if rdb != nil && topic != "" {
		go t.subscribeInvalidations(context.Background(), rdb, topic)
	}
	return t
}

func (t *TieredCache) Get(key fetch.DataSourceIdentity) (any, bool) {
	if v, ok := t.local.Get(key); ok {
		return v, true
	}
	t.mu.RLock()
	remote := t.remote
	t.mu.RUnlock()
	v, ok := remote.Get(key)
	if ok {
		t.local.Put(key, v)
	}
	return v, ok
}

func (t *TieredCache) Put(key fetch.DataSourceIdentity, value any) fetch.Cache {
	t.local.Put(key, value)
	t.mu.Lock()
	t.remote = t.remote.Put(key, value)
	t.mu.Unlock()
	return t
}

func (t *TieredCache) subscribeInvalidations(ctx context.Context, rdb redis.UniversalClient, topic string) {
	sub := rdb.Subscribe(ctx, topic)
	defer sub.Close()

	ch := sub.Channel()
	for msg := range ch {
		key := fetch.DataSourceIdentity{Source: fetch.DataSourceName(msg.Channel), ID: msg.Payload}
		if _, ok := t.local.lru.Peek(key); ok {
			t.local.lru.Remove(key)
			log.ZDebug(ctx, "fetchcache: tiered cache evicted local entry", "key", key)
		}
	}
}

var _ fetch.Cache = (*TieredCache)(nil)
