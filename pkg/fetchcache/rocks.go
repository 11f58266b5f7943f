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
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtm-labs/rockscache"
	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/redis/go-redis/v9"
)

// RocksCache is a Redis-backed fetch.Cache using rockscache for cache
// stampede protection on reads. Like LRUCache, it trades the immutable
// snapshot guarantee of fetch.EmptyInMemoryCache for a shared, mutable,
// network-backed store: Put writes through immediately and returns the same
// handle.
type RocksCache struct {
	client *rockscache.Client
	rdb    redis.UniversalClient
	expire time.Duration
}

// NewRocksCache wires a rockscache.Client over rdb with the given entry
// TTL.
func NewRocksCache(rdb redis.UniversalClient, expire time.Duration) *RocksCache {
	client := rockscache.NewClient(rdb, rockscache.NewDefaultOptions())
	return &RocksCache{client: client, rdb: rdb, expire: expire}
}

func (c *RocksCache) cacheKey(key fetch.DataSourceIdentity) string {
	return fmt.Sprintf("fetch:%s:%v", key.Source, key.ID)
}

func (c *RocksCache) Get(key fetch.DataSourceIdentity) (any, bool) {
	ctx := context.Background()
	data, err := c.client.Fetch2(ctx, c.cacheKey(key), c.expire, func() (string, error) {
		return "", nil
	})
	if err != nil {
		log.ZWarn(ctx, "fetchcache: rockscache read failed", err, "key", key)
		return nil, false
	}
	if data == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		log.ZWarn(ctx, "fetchcache: rockscache unmarshal failed", err, "key", key)
		return nil, false
	}
	return v, true
}

func (c *RocksCache) Put(key fetch.DataSourceIdentity, value any) fetch.Cache {
	ctx := context.Background()
	bs, err := json.Marshal(value)
	if err != nil {
		log.ZWarn(ctx, "fetchcache: rockscache marshal failed", err, "key", key)
		return c
	}
	redisKey := c.cacheKey(key)
	if err := c.rdb.Set(ctx, redisKey, bs, c.expire).Err(); err != nil {
		log.ZWarn(ctx, "fetchcache: rockscache write failed", errs.WrapMsg(err, "SET"), "key", key)
	}
	return c
}

var _ fetch.Cache = (*RocksCache)(nil)
