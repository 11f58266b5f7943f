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
	"time"

	"github.com/google/uuid"
)

// Environment is the immutable state threaded through interpretation: the
// current cache, the chronological round log, and the identities fetched by
// the most recent round. Every transition produces a successor Environment;
// RunID is stamped once per Run* call purely for log/metric correlation and
// has no bearing on cache or dedup semantics.
type Environment struct {
	RunID       string
	Cache       Cache
	Rounds      []Round
	LastFetched []DataSourceIdentity
}

func newEnvironment(cache Cache) Environment {
	return Environment{RunID: uuid.NewString(), Cache: cache}
}

// withRound returns the successor Environment after appending round and
// installing newCache (or the prior cache, for a cached round that mutated
// nothing) and lastFetched.
func (e Environment) withRound(round Round, newCache Cache, lastFetched []DataSourceIdentity) Environment {
	rounds := make([]Round, len(e.Rounds)+1)
	copy(rounds, e.Rounds)
	rounds[len(e.Rounds)] = round
	return Environment{
		RunID:       e.RunID,
		Cache:       newCache,
		Rounds:      rounds,
		LastFetched: lastFetched,
	}
}

// Stats summarizes a round log for observability: total rounds, cache hits
// vs. outbound calls, and total wall time spent across all rounds.
type Stats struct {
	TotalRounds    int
	CachedRounds   int
	OutboundRounds int
	SourcesCalled  map[DataSourceName]int
	WallTime       time.Duration
}

// Stats derives summary counters from the round log. It is purely a
// read-only view: the engine itself never consults it.
func (e Environment) Stats() Stats {
	s := Stats{SourcesCalled: map[DataSourceName]int{}}
	for _, r := range e.Rounds {
		s.TotalRounds++
		s.WallTime += r.End.Sub(r.Start)
		if r.NoOutboundCall {
			s.CachedRounds++
			continue
		}
		s.OutboundRounds++
		switch r.Kind {
		case RoundConcurrent:
			for name := range r.Batches {
				s.SourcesCalled[name]++
			}
		default:
			s.SourcesCalled[r.Source]++
		}
	}
	return s
}
