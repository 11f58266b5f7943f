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

package fetch

// memCache is the default in-memory Cache: an unordered map behind a
// copy-on-write Put, so a Cache value handed to one round's interpretation
// is never mutated by a later round.
type memCache struct {
	data map[DataSourceIdentity]any
}

// EmptyInMemoryCache returns the default Cache implementation: an empty,
// unordered, copy-on-write in-memory store.
func EmptyInMemoryCache() Cache {
	return &memCache{data: map[DataSourceIdentity]any{}}
}

func (c *memCache) Get(key DataSourceIdentity) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *memCache) Put(key DataSourceIdentity, value any) Cache {
	next := make(map[DataSourceIdentity]any, len(c.data)+1)
	for k, v := range c.data {
		next[k] = v
	}
	next[key] = value
	return &memCache{data: next}
}

// Size reports the number of entries currently held. Not part of the Cache
// protocol.
func (c *memCache) Size() int {
	return len(c.data)
}
