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

// Package fetchmetrics exports fetch.Round observability as Prometheus
// metrics.
package fetchmetrics

import (
	"time"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/prometheus/client_golang/prometheus"
)

// Reporter collects Prometheus metrics for a stream of fetch.Rounds.
type Reporter struct {
	registry *prometheus.Registry

	RoundsTotal    *prometheus.CounterVec
	RoundDuration  *prometheus.HistogramVec
	SourceCalls    *prometheus.CounterVec
	BatchSize      *prometheus.HistogramVec
	CacheHitRounds prometheus.Counter
}

// NewReporter builds a Reporter with metrics under namespace, registered on
// a dedicated registry (never the global one, so multiple engines can
// coexist in one process without name collisions).
func NewReporter(namespace string) *Reporter {
	registry := prometheus.NewRegistry()

	r := &Reporter{
		registry: registry,
		RoundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of interpreter rounds dispatched, by kind.",
		}, []string{"kind"}),
		RoundDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall-clock duration of each round.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		SourceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_calls_total",
			Help:      "Total number of outbound Fetch calls, by source.",
		}, []string{"source"}),
		BatchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of identities dispatched per outbound Fetch call.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		}, []string{"source"}),
		CacheHitRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hit_rounds_total",
			Help:      "Total number of rounds that made no outbound call.",
		}),
	}

	registry.MustRegister(r.RoundsTotal, r.RoundDuration, r.SourceCalls, r.BatchSize, r.CacheHitRounds)
	return r
}

// Registry returns the Reporter's dedicated Prometheus registry, for
// wiring into an HTTP handler.
func (r *Reporter) Registry() *prometheus.Registry { return r.registry }

// Observe records metrics for one completed Environment, as returned by
// fetch.RunEnv/fetch.RunFetch.
func (r *Reporter) Observe(env fetch.Environment) {
	for _, round := range env.Rounds {
		kind := round.Kind.String()
		r.RoundsTotal.WithLabelValues(kind).Inc()
		r.RoundDuration.WithLabelValues(kind).Observe(round.End.Sub(round.Start).Seconds())

		if round.NoOutboundCall {
			r.CacheHitRounds.Inc()
			continue
		}

		switch round.Kind {
		case fetch.RoundConcurrent:
			for source, ids := range round.Batches {
				r.SourceCalls.WithLabelValues(string(source)).Inc()
				r.BatchSize.WithLabelValues(string(source)).Observe(float64(len(ids)))
			}
		default:
			r.SourceCalls.WithLabelValues(string(round.Source)).Inc()
			r.BatchSize.WithLabelValues(string(round.Source)).Observe(float64(len(round.Identities)))
		}
	}
}

// ObserveWallTime records a single end-to-end Run's wall-clock time under
// the "run" round kind, complementing the per-round durations above.
func (r *Reporter) ObserveWallTime(d time.Duration) {
	r.RoundDuration.WithLabelValues("run").Observe(d.Seconds())
}
