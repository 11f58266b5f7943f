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

// fetchRequest is one outstanding leaf request on a plan's current
// wavefront, normalized to FetchMany shape (a single FetchOne becomes a
// one-element fetchRequest).
type fetchRequest struct {
	source erasedSource
	ids    []any
}

// extractDependencies walks node and returns the flat list of outstanding
// requests that gate its next interpretation step. It does not descend
// through FetchOne/FetchMany continuations — those values are unknown until
// fetched — so it only ever surfaces the first wavefront of demand.
func extractDependencies(node planNode) []fetchRequest {
	switch n := node.(type) {
	case pureNode, inlinedNode, errorNode:
		return nil
	case fetchOneNode:
		return []fetchRequest{{source: n.source, ids: []any{n.id}}}
	case fetchManyNode:
		return []fetchRequest{{source: n.source, ids: n.ids}}
	case concurrentNode:
		reqs := make([]fetchRequest, 0, len(n.batches))
		for _, b := range n.batches {
			reqs = append(reqs, fetchRequest{source: b.source, ids: b.ids})
		}
		return reqs
	case joinNode:
		return append(extractDependencies(n.left), extractDependencies(n.right)...)
	case bindNode:
		if v, ok := resolvePureChain(n.prev); ok {
			return extractDependencies(n.k(v))
		}
		return extractDependencies(n.prev)
	default:
		return nil
	}
}

// resolvePureChain follows a chain of Pure/Inlined leaves and the binds
// sequenced on them, returning the fully-resolved value when the entire
// chain is fetch-free. It treats Inlined exactly like Pure: an
// already-known value's continuation is what actually gates execution.
func resolvePureChain(node planNode) (any, bool) {
	switch n := node.(type) {
	case pureNode:
		return n.value, true
	case inlinedNode:
		return n.value, true
	case bindNode:
		v, ok := resolvePureChain(n.prev)
		if !ok {
			return nil, false
		}
		return resolvePureChain(n.k(v))
	default:
		return nil, false
	}
}
