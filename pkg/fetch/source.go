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

// Package fetch implements a batched, deduplicating, cache-coordinated
// data-fetching engine: callers describe a computation over named data
// sources as a composable Plan, and Run/RunEnv/RunFetch execute it while
// deduplicating identical requests, batching independent requests against
// the same source, and dispatching independent sources concurrently.
package fetch

import "context"

// DataSourceName stably names a data source. Two source instances sharing a
// name are treated as the same source for batching purposes.
type DataSourceName string

// DataSourceIdentity is the cache key: a source name paired with an opaque,
// comparable identity value.
type DataSourceIdentity struct {
	Source DataSourceName
	ID     any
}

// DataSource is the user-supplied recipe for fetching values of type A keyed
// by an identity of type I. Fetch receives a non-empty, deduplicated list of
// ids and may return a partial map: a requested id missing from the result
// is reported by the engine as a MissingIdentityError. Fetch must be
// idempotent and must not have observable side effects on the cache; the
// engine may call Fetch concurrently across distinct source instances but
// never issues two overlapping calls to the same instance within one round.
type DataSource[I comparable, A any] interface {
	Name() DataSourceName
	Identity(id I) DataSourceIdentity
	Fetch(ctx context.Context, ids []I) (map[I]A, error)
}

// erasedSource is the type-erasure boundary through which a concrete
// DataSource[I, A] is carried inside the untyped plan tree. This, together
// with the cache's value storage, is the only place the engine trades
// static types for dynamic ones.
type erasedSource struct {
	name     DataSourceName
	identity func(id any) DataSourceIdentity
	fetch    func(ctx context.Context, ids []any) (map[any]any, error)
}

func eraseSource[I comparable, A any](ds DataSource[I, A]) erasedSource {
	return erasedSource{
		name: ds.Name(),
		identity: func(id any) DataSourceIdentity {
			return ds.Identity(id.(I))
		},
		fetch: func(ctx context.Context, ids []any) (map[any]any, error) {
			typed := make([]I, len(ids))
			for i, id := range ids {
				typed[i] = id.(I)
			}
			res, err := ds.Fetch(ctx, typed)
			if err != nil {
				return nil, err
			}
			out := make(map[any]any, len(res))
			for k, v := range res {
				out[k] = v
			}
			return out, nil
		},
	}
}
