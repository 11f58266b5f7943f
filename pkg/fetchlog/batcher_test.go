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

package fetchlog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/fetchkit/pkg/fetchlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundExporterFlushesOnSize(t *testing.T) {
	var mu sync.Mutex
	var flushed []fetch.Round

	done := make(chan struct{}, 1)
	exporter := fetchlog.NewRoundExporter(func(_ context.Context, _ string, bySource map[string][]fetch.Round) {
		mu.Lock()
		for _, rounds := range bySource {
			flushed = append(flushed, rounds...)
		}
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}, fetchlog.WithSize(2), fetchlog.WithInterval(time.Hour), fetchlog.WithWorker(1))

	require.NoError(t, exporter.Start())
	defer exporter.Close()

	ctx := context.Background()
	require.NoError(t, exporter.Put(ctx, fetch.Round{Source: "Users", Kind: fetch.RoundSingle}))
	require.NoError(t, exporter.Put(ctx, fetch.Round{Source: "Users", Kind: fetch.RoundSingle}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected a flush triggered by reaching the configured size")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, flushed, 2)
}

func TestRoundExporterFlushesOnInterval(t *testing.T) {
	var mu sync.Mutex
	var flushed []fetch.Round

	done := make(chan struct{}, 1)
	exporter := fetchlog.NewRoundExporter(func(_ context.Context, _ string, bySource map[string][]fetch.Round) {
		mu.Lock()
		for _, rounds := range bySource {
			flushed = append(flushed, rounds...)
		}
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}, fetchlog.WithSize(100), fetchlog.WithInterval(20*time.Millisecond), fetchlog.WithWorker(1))

	require.NoError(t, exporter.Start())
	defer exporter.Close()

	require.NoError(t, exporter.Put(context.Background(), fetch.Round{Source: "Posts", Kind: fetch.RoundSingle}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected a flush triggered by the interval ticker")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, flushed, 1)
}
