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

import (
	"context"
	"time"

	"github.com/openimsdk/tools/log"
	"golang.org/x/sync/errgroup"
)

// Run executes plan against cache and returns its final value.
func Run[A any](ctx context.Context, plan Plan[A], cache Cache) (A, error) {
	_, v, err := RunFetch(ctx, plan, cache)
	return v, err
}

// RunEnv executes plan against cache and returns the final Environment.
func RunEnv[A any](ctx context.Context, plan Plan[A], cache Cache) (Environment, error) {
	env, _, err := RunFetch(ctx, plan, cache)
	return env, err
}

// RunFetch executes plan against cache and returns both the final
// Environment and the plan's value.
func RunFetch[A any](ctx context.Context, plan Plan[A], cache Cache) (Environment, A, error) {
	var zero A
	env := newEnvironment(cache)
	v, env, err := runStep(ctx, env, plan.node)
	if err != nil {
		return env, zero, err
	}
	return env, v.(A), nil
}

// runStep interprets one node against env, returning its value and the
// successor Environment. It is the single entry point every leaf and
// combinator funnels through; bindNode sequencing and joinNode's
// concurrency algorithm are both expressed by recursive calls back into it.
func runStep(ctx context.Context, env Environment, node planNode) (any, Environment, error) {
	switch n := node.(type) {
	case pureNode:
		return n.value, env, nil
	case inlinedNode:
		return n.value, env, nil
	case errorNode:
		return nil, env, &UserError{Err: n.err}
	case fetchOneNode:
		return interpretFetchOne(ctx, env, n)
	case fetchManyNode:
		return interpretFetchMany(ctx, env, n)
	case concurrentNode:
		return interpretConcurrent(ctx, env, n)
	case joinNode:
		lv, rv, env2, err := interpretJoin(ctx, env, n.left, n.right)
		if err != nil {
			return nil, env2, err
		}
		return pair{left: lv, right: rv}, env2, nil
	case bindNode:
		v, env2, err := runStep(ctx, env, n.prev)
		if err != nil {
			return nil, env2, err
		}
		return runStep(ctx, env2, n.k(v))
	default:
		panic("fetch: unknown plan node")
	}
}

func interpretFetchOne(ctx context.Context, env Environment, n fetchOneNode) (any, Environment, error) {
	identity := n.source.identity(n.id)
	start := time.Now()

	if v, ok := env.Cache.Get(identity); ok {
		end := time.Now()
		round := Round{
			Source: n.source.name, Kind: RoundSingle,
			Identities:    []DataSourceIdentity{identity},
			CacheSnapshot: env.Cache, Start: start, End: end,
			Cached: true, NoOutboundCall: true,
		}
		newEnv := env.withRound(round, env.Cache, []DataSourceIdentity{identity})
		log.ZDebug(ctx, "fetch: cache hit", "source", n.source.name, "id", n.id)
		return v, newEnv, nil
	}

	log.ZDebug(ctx, "fetch: dispatching single", "source", n.source.name, "id", n.id)
	result, err := n.source.fetch(ctx, []any{n.id})
	if err != nil {
		log.ZError(ctx, "fetch: source call failed", err, "source", n.source.name, "id", n.id)
		return nil, env, &SourceError{Source: n.source.name, Err: err}
	}
	end := time.Now()

	v, ok := result[n.id]
	if !ok {
		round := Round{
			Source: n.source.name, Kind: RoundSingle,
			Identities:    []DataSourceIdentity{identity},
			CacheSnapshot: env.Cache, Start: start, End: end,
		}
		failEnv := env.withRound(round, env.Cache, nil)
		return nil, failEnv, &MissingIdentityError{Identity: identity, Environment: failEnv}
	}

	newCache := env.Cache.Put(identity, v)
	round := Round{
		Source: n.source.name, Kind: RoundSingle,
		Identities:    []DataSourceIdentity{identity},
		CacheSnapshot: env.Cache, Start: start, End: end,
	}
	newEnv := env.withRound(round, newCache, []DataSourceIdentity{identity})
	return v, newEnv, nil
}

func interpretFetchMany(ctx context.Context, env Environment, n fetchManyNode) (any, Environment, error) {
	start := time.Now()

	unique := make([]any, 0, len(n.ids))
	seen := make(map[any]bool, len(n.ids))
	cached := make(map[any]any, len(n.ids))
	var misses []any
	for _, id := range n.ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
		if v, ok := env.Cache.Get(n.source.identity(id)); ok {
			cached[id] = v
		} else {
			misses = append(misses, id)
		}
	}

	identities := make([]DataSourceIdentity, len(unique))
	for i, id := range unique {
		identities[i] = n.source.identity(id)
	}

	if len(misses) == 0 {
		end := time.Now()
		round := Round{
			Source: n.source.name, Kind: RoundMany, Identities: identities,
			CacheSnapshot: env.Cache, Start: start, End: end,
			Cached: true, NoOutboundCall: true,
		}
		newEnv := env.withRound(round, env.Cache, identities)
		values := make([]any, len(n.ids))
		for i, id := range n.ids {
			values[i] = cached[id]
		}
		return values, newEnv, nil
	}

	log.ZDebug(ctx, "fetch: dispatching many", "source", n.source.name, "misses", len(misses), "total", len(unique))
	response, err := n.source.fetch(ctx, misses)
	if err != nil {
		log.ZError(ctx, "fetch: source call failed", err, "source", n.source.name)
		return nil, env, &SourceError{Source: n.source.name, Err: err}
	}
	end := time.Now()

	newCache := env.Cache
	for _, id := range misses {
		if v, ok := response[id]; ok {
			newCache = newCache.Put(n.source.identity(id), v)
		}
	}

	values := make([]any, len(n.ids))
	for i, id := range n.ids {
		if v, ok := cached[id]; ok {
			values[i] = v
			continue
		}
		if v, ok := response[id]; ok {
			values[i] = v
			continue
		}
		round := Round{
			Source: n.source.name, Kind: RoundMany, Identities: identities,
			CacheSnapshot: env.Cache, Start: start, End: end,
		}
		failEnv := env.withRound(round, newCache, identities)
		return nil, failEnv, &MissingIdentityError{Identity: n.source.identity(id), Environment: failEnv}
	}

	round := Round{
		Source: n.source.name, Kind: RoundMany, Identities: identities,
		CacheSnapshot: env.Cache, Start: start, End: end,
		// Cached is true when the deduplicated request equalled its miss
		// set, i.e. nothing in it was already cached — the opposite of
		// what the field name suggests at a glance.
		Cached: len(unique) == len(misses),
	}
	newEnv := env.withRound(round, newCache, identities)
	return values, newEnv, nil
}

func interpretConcurrent(ctx context.Context, env Environment, n concurrentNode) (any, Environment, error) {
	start := time.Now()

	type work struct {
		source erasedSource
		ids    []any
	}
	var todo []work
	for _, b := range n.batches {
		misses := missingIDs(env.Cache, b.source, b.ids)
		if len(misses) > 0 {
			todo = append(todo, work{source: b.source, ids: misses})
		}
	}

	if len(todo) == 0 {
		return env, env, nil
	}

	log.ZDebug(ctx, "fetch: dispatching concurrent round", "sources", len(todo))
	responses := make([]map[any]any, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range todo {
		i, w := i, w
		g.Go(func() error {
			res, err := w.source.fetch(gctx, w.ids)
			if err != nil {
				return &SourceError{Source: w.source.name, Err: err}
			}
			responses[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.ZError(ctx, "fetch: concurrent round failed", err)
		return nil, env, err
	}
	end := time.Now()

	newCache := env.Cache
	batches := make(map[DataSourceName][]DataSourceIdentity, len(todo))
	var lastFetched []DataSourceIdentity
	var missing *MissingIdentityError
	for i, w := range todo {
		res := responses[i]
		fetched := make([]DataSourceIdentity, 0, len(w.ids))
		for _, id := range w.ids {
			identity := w.source.identity(id)
			v, ok := res[id]
			if !ok {
				if missing == nil {
					missing = &MissingIdentityError{Identity: identity}
				}
				continue
			}
			newCache = newCache.Put(identity, v)
			fetched = append(fetched, identity)
		}
		batches[w.source.name] = fetched
		lastFetched = append(lastFetched, fetched...)
	}

	round := Round{
		Kind: RoundConcurrent, Batches: batches,
		CacheSnapshot: env.Cache, Start: start, End: end,
	}
	newEnv := env.withRound(round, newCache, lastFetched)
	if missing != nil {
		missing.Environment = newEnv
		return nil, newEnv, missing
	}
	return newEnv, newEnv, nil
}

// interpretJoin runs the join algorithm: extract outstanding dependencies
// from both branches, combine them into one round, dispatch it, simplify
// both branches against the result, and recurse until neither
// branch has outstanding dependencies — at which point both are pure cache
// hits or already-known values and are interpreted sequentially. Each
// recursion fills at least one missing identity or fails, so this
// terminates on any finite plan.
func interpretJoin(ctx context.Context, env Environment, left, right planNode) (any, any, Environment, error) {
	for {
		deps := append(extractDependencies(left), extractDependencies(right)...)
		if len(deps) == 0 {
			lv, env2, err := runStep(ctx, env, left)
			if err != nil {
				return nil, nil, env2, err
			}
			rv, env3, err := runStep(ctx, env2, right)
			if err != nil {
				return nil, nil, env3, err
			}
			return lv, rv, env3, nil
		}

		batches := combineBatches(deps)
		_, env2, err := runStep(ctx, env, concurrentNode{batches: batches})
		if err != nil {
			return nil, nil, env2, err
		}

		left = simplify(left, env2)
		right = simplify(right, env2)
		env = env2
	}
}
