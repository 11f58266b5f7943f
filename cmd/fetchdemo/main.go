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

// Command fetchdemo wires the fetch engine end to end against sample data:
// a bounded local cache in front of an optional Redis tier, Prometheus
// metrics exported over HTTP, and round export to structured logs.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/fetchkit/pkg/fetchcache"
	"github.com/openimsdk/fetchkit/pkg/fetchlog"
	"github.com/openimsdk/fetchkit/pkg/fetchmetrics"
	"github.com/openimsdk/fetchkit/pkg/fetchsource"
	"github.com/openimsdk/tools/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"
)

func main() {
	configPath := pflag.String("config", "config/fetchdemo.yaml", "path to fetchdemo's config file")
	pflag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fetchdemo:", err)
		os.Exit(1)
	}

	ctx := context.Background()

	local, err := fetchcache.NewLRUCache(cfg.Cache.LocalSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fetchdemo:", err)
		os.Exit(1)
	}

	var cache fetch.Cache = local
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		remote := fetchcache.NewRocksCache(rdb, 0)
		cache = fetchcache.NewTieredCache(local, remote, rdb, "fetchdemo:invalidate")
	}

	reporter := fetchmetrics.NewReporter(cfg.Metrics.Namespace)
	exporter := fetchlog.NewRoundExporter(func(ctx context.Context, triggerID string, bySource map[string][]fetch.Round) {
		for source, rounds := range bySource {
			log.ZDebug(ctx, "fetchdemo: round batch exported", "triggerID", triggerID, "source", source, "count", len(rounds))
		}
	})
	if err := exporter.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "fetchdemo:", err)
		os.Exit(1)
	}
	defer exporter.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reporter.Registry(), promhttp.HandlerOpts{}))
		log.ZError(ctx, "fetchdemo: metrics server exited", http.ListenAndServe(cfg.Metrics.Addr, mux))
	}()

	users := fetchsource.NewMemorySource("Users", map[int]string{
		1: "ada", 2: "alan", 3: "grace",
	})
	posts := fetchsource.NewMemorySource("Posts", map[int]string{
		10: "hello, world", 11: "batching is fun",
	})

	plan := fetch.Join(
		fetch.Traverse([]int{1, 2, 3}, func(id int) fetch.Plan[string] { return fetch.One(id, users) }),
		fetch.One(10, posts),
	)

	env, result, err := fetch.RunFetch(ctx, plan, cache)
	if err != nil {
		log.ZError(ctx, "fetchdemo: run failed", err)
		os.Exit(1)
	}
	reporter.Observe(env)
	for _, round := range env.Rounds {
		_ = exporter.Put(ctx, round)
	}

	log.ZInfo(ctx, "fetchdemo: run complete", "result", result, "rounds", len(env.Rounds), "stats", env.Stats())
}
