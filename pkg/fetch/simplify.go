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

// simplify rewrites node against env's cache: fetch leaves whose identities
// are already cached become Inlined, so a later extractDependencies pass
// sees less (or no) outstanding demand. Partial FetchMany batches are left
// untouched — per-id dedup and cache filtering happens once, inside the
// interpreter, not here.
func simplify(node planNode, env Environment) planNode {
	switch n := node.(type) {
	case fetchOneNode:
		if v, ok := env.Cache.Get(n.source.identity(n.id)); ok {
			return inlinedNode{value: v}
		}
		return n
	case fetchManyNode:
		values := make([]any, len(n.ids))
		for i, id := range n.ids {
			v, ok := env.Cache.Get(n.source.identity(id))
			if !ok {
				return n
			}
			values[i] = v
		}
		return inlinedNode{value: values}
	case concurrentNode:
		kept := make([]fetchManyNode, 0, len(n.batches))
		for _, b := range n.batches {
			if len(missingIDs(env.Cache, b.source, b.ids)) > 0 {
				kept = append(kept, b)
			}
		}
		if len(kept) == 0 {
			return inlinedNode{value: env}
		}
		return concurrentNode{batches: kept}
	case joinNode:
		return joinNode{left: simplify(n.left, env), right: simplify(n.right, env)}
	case bindNode:
		return bindNode{prev: simplify(n.prev, env), k: n.k}
	default:
		return node
	}
}

// missingIDs returns the deduplicated subset of ids not already present in
// cache under source's identity mapping, preserving first-seen order.
func missingIDs(cache Cache, source erasedSource, ids []any) []any {
	seen := make(map[any]bool, len(ids))
	var out []any
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := cache.Get(source.identity(id)); !ok {
			out = append(out, id)
		}
	}
	return out
}
