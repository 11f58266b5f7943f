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

package fetch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapSource is a DataSource[int, string] backed by an in-memory map,
// recording every Fetch call for assertions on batching/dedup behavior.
type mapSource struct {
	name fetch.DataSourceName
	data map[int]string

	mu    sync.Mutex
	calls [][]int
}

func newMapSource(name string, data map[int]string) *mapSource {
	return &mapSource{name: fetch.DataSourceName(name), data: data}
}

func (s *mapSource) Name() fetch.DataSourceName { return s.name }

func (s *mapSource) Identity(id int) fetch.DataSourceIdentity {
	return fetch.DataSourceIdentity{Source: s.name, ID: id}
}

func (s *mapSource) Fetch(ctx context.Context, ids []int) (map[int]string, error) {
	s.mu.Lock()
	cp := append([]int(nil), ids...)
	s.calls = append(s.calls, cp)
	s.mu.Unlock()

	out := make(map[int]string, len(ids))
	for _, id := range ids {
		if v, ok := s.data[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *mapSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *mapSource) lastCall() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

// Scenario 1: join of two independent fetches against the same source
// resolves in one concurrent round with one combined batch.
func TestJoinSameSourceOneRound(t *testing.T) {
	users := newMapSource("Users", map[int]string{1: "a", 2: "b", 3: "c"})
	plan := fetch.Join(fetch.One(1, users), fetch.One(2, users))

	env, v, err := fetch.RunFetch(context.Background(), plan, fetch.EmptyInMemoryCache())
	require.NoError(t, err)
	assert.Equal(t, fetch.Pair[string, string]{First: "a", Second: "b"}, v)

	require.Len(t, env.Rounds, 1)
	r := env.Rounds[0]
	assert.Equal(t, fetch.RoundConcurrent, r.Kind)
	require.Contains(t, r.Batches, users.Name())
	assert.ElementsMatch(t, idsOf(users.Name(), 1, 2), r.Batches[users.Name()])
	assert.Equal(t, 1, users.callCount())
	assert.ElementsMatch(t, []int{1, 2}, users.lastCall())
}

// Scenario 2: collecting three plans against the same source, one id
// repeated, still resolves in a single concurrent round with a
// deduplicated batch.
func TestCollectDedupesWithinOneRound(t *testing.T) {
	users := newMapSource("Users", map[int]string{1: "a", 2: "b", 3: "c"})
	plan := fetch.Collect([]fetch.Plan[string]{
		fetch.One(1, users),
		fetch.One(2, users),
		fetch.One(1, users),
	})

	env, v, err := fetch.RunFetch(context.Background(), plan, fetch.EmptyInMemoryCache())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a"}, v)

	require.Len(t, env.Rounds, 1)
	assert.Equal(t, fetch.RoundConcurrent, env.Rounds[0].Kind)
	assert.Equal(t, 1, users.callCount())
	assert.ElementsMatch(t, []int{1, 2}, users.lastCall())
}

// Scenario 3: joining independent fetches against two different sources
// dispatches both within a single concurrent round.
func TestJoinDifferentSourcesOneRoundTwoBatches(t *testing.T) {
	users := newMapSource("Users", map[int]string{1: "a"})
	posts := newMapSource("Posts", map[int]string{10: "hello"})
	plan := fetch.Join(fetch.One(1, users), fetch.One(10, posts))

	env, v, err := fetch.RunFetch(context.Background(), plan, fetch.EmptyInMemoryCache())
	require.NoError(t, err)
	assert.Equal(t, fetch.Pair[string, string]{First: "a", Second: "hello"}, v)

	require.Len(t, env.Rounds, 1)
	r := env.Rounds[0]
	assert.Equal(t, fetch.RoundConcurrent, r.Kind)
	assert.Len(t, r.Batches, 2)
	assert.Equal(t, 1, users.callCount())
	assert.Equal(t, 1, posts.callCount())
}

// Scenario 4: a fetch that depends on the result of a previous fetch cannot
// be batched and produces two sequential single rounds.
func TestFlatMapSequentialRounds(t *testing.T) {
	users := newMapSource("Users", map[int]string{1: "a", 2: "b"})
	plan := fetch.FlatMap(fetch.One(1, users), func(string) fetch.Plan[string] {
		return fetch.One(2, users)
	})

	env, v, err := fetch.RunFetch(context.Background(), plan, fetch.EmptyInMemoryCache())
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	require.Len(t, env.Rounds, 2)
	assert.Equal(t, fetch.RoundSingle, env.Rounds[0].Kind)
	assert.Equal(t, fetch.RoundSingle, env.Rounds[1].Kind)
	assert.Equal(t, 2, users.callCount())
	assert.False(t, env.Rounds[1].Start.Before(env.Rounds[0].End))
}

// Scenario 5: rerunning a plan against a cache that already holds every
// identity it needs performs zero source calls.
func TestCachedRerunMakesNoSourceCalls(t *testing.T) {
	users := newMapSource("Users", map[int]string{1: "a", 2: "b"})
	first := fetch.Join(fetch.One(1, users), fetch.One(2, users))
	env1, _, err := fetch.RunFetch(context.Background(), first, fetch.EmptyInMemoryCache())
	require.NoError(t, err)
	require.Equal(t, 1, users.callCount())

	env2, v, err := fetch.RunFetch(context.Background(), fetch.One(1, users), env1.Cache)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, users.callCount(), "cached rerun must not call the source again")

	require.Len(t, env2.Rounds, 1)
	assert.True(t, env2.Rounds[0].NoOutboundCall)
}

// Scenario 6: a source response missing a requested id fails the run with
// MissingIdentityError and leaves the cache untouched.
func TestMissingIdentityFailsRun(t *testing.T) {
	users := newMapSource("Users", map[int]string{1: "a"})
	cache := fetch.EmptyInMemoryCache()

	_, _, err := fetch.RunFetch(context.Background(), fetch.One(99, users), cache)
	require.Error(t, err)

	var missing *fetch.MissingIdentityError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 99, missing.Identity.ID)
	require.Len(t, missing.Environment.Rounds, 1)

	if _, ok := cache.Get(fetch.DataSourceIdentity{Source: users.Name(), ID: 99}); ok {
		t.Fatal("cache must not gain an entry for a failed fetch")
	}
}

// Error(e) aborts the run, surfacing e unchanged as UserError's cause.
func TestUserErrorAbortsRun(t *testing.T) {
	cause := fmt.Errorf("boom")
	_, _, err := fetch.RunFetch(context.Background(), fetch.Error[string](cause), fetch.EmptyInMemoryCache())
	require.Error(t, err)
	var userErr *fetch.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, cause, userErr.Unwrap())
}

// Round minimality + round ordering across a larger Traverse.
func TestTraverseBatchesAndOrdersRounds(t *testing.T) {
	users := newMapSource("Users", map[int]string{1: "a", 2: "b", 3: "c", 4: "d"})
	plan := fetch.Traverse([]int{1, 2, 3, 4}, func(id int) fetch.Plan[string] {
		return fetch.One(id, users)
	})

	env, v, err := fetch.RunFetch(context.Background(), plan, fetch.EmptyInMemoryCache())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, v)
	assert.Equal(t, 1, users.callCount())

	for i := 1; i < len(env.Rounds); i++ {
		assert.False(t, env.Rounds[i].Start.Before(env.Rounds[i-1].End))
	}
}

func idsOf(source fetch.DataSourceName, ids ...int) []fetch.DataSourceIdentity {
	out := make([]fetch.DataSourceIdentity, len(ids))
	for i, id := range ids {
		out[i] = fetch.DataSourceIdentity{Source: source, ID: id}
	}
	return out
}
