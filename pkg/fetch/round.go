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

import "time"

// RoundKind distinguishes how a Round consulted its source(s).
type RoundKind int

const (
	RoundSingle RoundKind = iota
	RoundMany
	RoundConcurrent
)

func (k RoundKind) String() string {
	switch k {
	case RoundSingle:
		return "single"
	case RoundMany:
		return "many"
	case RoundConcurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// Round records one fetch act. For RoundSingle/RoundMany, Source and
// Identities describe the one source consulted. For RoundConcurrent,
// Batches holds the identities actually fetched per source name (sources
// whose batch fully hit the pre-round cache are omitted).
//
// Cached has a deliberately literal meaning for a RoundMany that called its
// source: true means the round's misses equalled its full deduplicated id
// set, i.e. nothing in it was already cached — not the intuitive "this round
// was a cache hit". A RoundMany served entirely from the cache also has
// Cached (and NoOutboundCall) set to true. For
// RoundSingle and RoundConcurrent, Cached/empty-Batches mean what they say:
// a pure cache hit with no outbound call.
type Round struct {
	Source        DataSourceName
	Kind          RoundKind
	Identities    []DataSourceIdentity
	Batches       map[DataSourceName][]DataSourceIdentity
	CacheSnapshot Cache
	Start, End    time.Time
	Cached        bool

	// NoOutboundCall is true iff this round made zero calls to any source
	// (a pure cache hit). Unlike Cached — which for RoundMany keeps its
	// literal, counter-intuitive meaning — NoOutboundCall always means
	// what it says and is what Stats uses to count cache hits.
	NoOutboundCall bool
}
