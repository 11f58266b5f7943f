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

// combineBatches merges a list of per-source requests into one FetchMany
// per distinct source name. Within a source, ids are the concatenation of
// every request's ids with duplicates removed, first-seen order preserved;
// across sources, output order follows first appearance in reqs.
func combineBatches(reqs []fetchRequest) []fetchManyNode {
	order := make([]DataSourceName, 0, len(reqs))
	bySource := make(map[DataSourceName]*fetchManyNode, len(reqs))
	seen := make(map[DataSourceName]map[any]bool, len(reqs))

	for _, r := range reqs {
		name := r.source.name
		fm, ok := bySource[name]
		if !ok {
			fm = &fetchManyNode{source: r.source}
			bySource[name] = fm
			seen[name] = make(map[any]bool, len(r.ids))
			order = append(order, name)
		}
		seenIDs := seen[name]
		for _, id := range r.ids {
			if seenIDs[id] {
				continue
			}
			seenIDs[id] = true
			fm.ids = append(fm.ids, id)
		}
	}

	out := make([]fetchManyNode, len(order))
	for i, name := range order {
		out[i] = *bySource[name]
	}
	return out
}
