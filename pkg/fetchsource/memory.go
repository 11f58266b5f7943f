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

// Package fetchsource provides ready-made fetch.DataSource implementations
// for tests, demos, and simple in-process lookups.
package fetchsource

import (
	"context"
	"sync"

	"github.com/openimsdk/fetchkit/pkg/fetch"
)

// MemorySource is a fetch.DataSource[K, V] backed by a fixed, read-only map.
// It is concurrency-safe and suitable for tests and demos; it is not meant
// to model a real remote call (no latency, no partial failure injection
// beyond a missing key).
type MemorySource[K comparable, V any] struct {
	name fetch.DataSourceName
	data map[K]V
	mu   sync.RWMutex
}

// NewMemorySource builds a MemorySource named name over a snapshot of data.
func NewMemorySource[K comparable, V any](name string, data map[K]V) *MemorySource[K, V] {
	cp := make(map[K]V, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return &MemorySource[K, V]{name: fetch.DataSourceName(name), data: cp}
}

func (s *MemorySource[K, V]) Name() fetch.DataSourceName { return s.name }

func (s *MemorySource[K, V]) Identity(id K) fetch.DataSourceIdentity {
	return fetch.DataSourceIdentity{Source: s.name, ID: id}
}

func (s *MemorySource[K, V]) Fetch(_ context.Context, ids []K) (map[K]V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[K]V, len(ids))
	for _, id := range ids {
		if v, ok := s.data[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// Set installs or overwrites an entry, visible to subsequent Fetch calls.
// It does not invalidate any fetch.Cache that has already cached the old
// value — callers that mutate a MemorySource backing a long-lived cache are
// responsible for their own invalidation.
func (s *MemorySource[K, V]) Set(id K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = value
}
