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

package fetchsource_test

import (
	"context"
	"testing"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/fetchkit/pkg/fetchsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySourceFetchReturnsPartialResultForMissingIDs(t *testing.T) {
	src := fetchsource.NewMemorySource("Users", map[int]string{1: "ada", 2: "alan"})

	out, err := src.Fetch(context.Background(), []int{1, 2, 99})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "ada", 2: "alan"}, out)
}

func TestMemorySourceSetIsVisibleToLaterFetch(t *testing.T) {
	src := fetchsource.NewMemorySource("Users", map[int]string{})
	src.Set(5, "grace")

	out, err := src.Fetch(context.Background(), []int{5})
	require.NoError(t, err)
	assert.Equal(t, "grace", out[5])
}

func TestMemorySourceWorksAsFetchDataSource(t *testing.T) {
	src := fetchsource.NewMemorySource("Users", map[int]string{1: "ada"})
	plan := fetch.One(1, src)

	v, err := fetch.Run(context.Background(), plan, fetch.EmptyInMemoryCache())
	require.NoError(t, err)
	assert.Equal(t, "ada", v)
}
