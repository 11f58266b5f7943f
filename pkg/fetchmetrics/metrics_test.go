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

package fetchmetrics_test

import (
	"testing"
	"time"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/fetchkit/pkg/fetchmetrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterObserveCountsOutboundAndCachedRounds(t *testing.T) {
	r := fetchmetrics.NewReporter("fetchkit_test")

	now := time.Now()
	env := fetch.Environment{
		Rounds: []fetch.Round{
			{
				Source: "Users", Kind: fetch.RoundSingle,
				Identities: []fetch.DataSourceIdentity{{Source: "Users", ID: 1}},
				Start:      now, End: now.Add(time.Millisecond),
			},
			{
				Source: "Users", Kind: fetch.RoundSingle,
				Identities:     []fetch.DataSourceIdentity{{Source: "Users", ID: 2}},
				Start:          now, End: now.Add(time.Millisecond),
				Cached:         true,
				NoOutboundCall: true,
			},
		},
	}
	r.Observe(env)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.SourceCalls.WithLabelValues("Users")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.CacheHitRounds))

	gathered, err := r.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, gathered)
}
