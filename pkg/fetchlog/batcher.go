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

// Package fetchlog exports fetch.Rounds to an external sink asynchronously,
// aggregating them by source before each flush instead of shipping every
// round as its own write.
package fetchlog

import (
	"context"
	"time"

	"github.com/openimsdk/fetchkit/pkg/fetch"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/utils/idutil"
)

var (
	DefaultDataBuffer = 1000
	DefaultSize       = 100
	DefaultBuffer     = 100
	DefaultWorker     = 4
	DefaultInterval   = time.Second
)

// Sink receives the rounds of one source from one flush, as a single-entry
// map keyed by source name (the RoundConcurrent kind, which has no single
// Source, is reported under the empty key). A flush calls Sink once per
// source, and every call of the same flush carries the same triggerID.
type Sink func(ctx context.Context, triggerID string, bySource map[string][]fetch.Round)

// Config configures a RoundExporter.
type Config struct {
	size     int
	buffer   int
	worker   int
	interval time.Duration
}

// Option configures a RoundExporter via NewRoundExporter.
type Option func(*Config)

func WithSize(n int) Option                { return func(c *Config) { c.size = n } }
func WithBuffer(n int) Option              { return func(c *Config) { c.buffer = n } }
func WithWorker(n int) Option              { return func(c *Config) { c.worker = n } }
func WithInterval(d time.Duration) Option  { return func(c *Config) { c.interval = d } }

// RoundExporter batches fetch.Rounds off the hot interpreter path and
// flushes them to a Sink either once `size` rounds have accumulated or
// every `interval`, whichever comes first, sharding flushes across a fixed
// worker pool so one slow Sink call cannot stall the others.
type RoundExporter struct {
	config Config
	sink   Sink

	ctx    context.Context
	cancel context.CancelFunc

	in       chan fetch.Round
	shards   []chan flush
	done     chan struct{}
}

type flush struct {
	triggerID string
	bySource  map[string][]fetch.Round
}

// NewRoundExporter builds a RoundExporter that calls sink on every flush.
func NewRoundExporter(sink Sink, opts ...Option) *RoundExporter {
	cfg := Config{size: DefaultSize, buffer: DefaultBuffer, worker: DefaultWorker, interval: DefaultInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &RoundExporter{
		config: cfg,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		in:     make(chan fetch.Round, DefaultDataBuffer),
		done:   make(chan struct{}),
	}
	e.shards = make([]chan flush, cfg.worker)
	for i := range e.shards {
		e.shards[i] = make(chan flush, cfg.buffer)
	}
	return e
}

// Start launches the scheduler and worker goroutines.
func (e *RoundExporter) Start() error {
	if e.sink == nil {
		return errs.New("fetchlog: sink is required").Wrap()
	}
	for i, shard := range e.shards {
		go e.work(i, shard)
	}
	go e.schedule()
	return nil
}

// Put enqueues round for export. It never blocks the interpreter on a
// nearly-full channel beyond ctx's deadline.
func (e *RoundExporter) Put(ctx context.Context, round fetch.Round) error {
	select {
	case <-e.ctx.Done():
		return errs.New("fetchlog: exporter is closed").Wrap()
	case <-ctx.Done():
		return ctx.Err()
	case e.in <- round:
		return nil
	}
}

func (e *RoundExporter) schedule() {
	ticker := time.NewTicker(e.config.interval)
	defer func() {
		ticker.Stop()
		for _, shard := range e.shards {
			close(shard)
		}
		close(e.done)
	}()

	bySource := make(map[string][]fetch.Round)
	count := 0

	flushNow := func() {
		if count == 0 {
			return
		}
		triggerID := idutil.OperationIDGenerator()
		i := 0
		for source, rounds := range bySource {
			e.shards[i%len(e.shards)] <- flush{triggerID: triggerID, bySource: map[string][]fetch.Round{source: rounds}}
			i++
		}
		bySource = make(map[string][]fetch.Round)
		count = 0
	}

	for {
		select {
		case round, ok := <-e.in:
			if !ok {
				flushNow()
				return
			}
			key := string(round.Source)
			bySource[key] = append(bySource[key], round)
			count++
			if count >= e.config.size {
				flushNow()
			}
		case <-ticker.C:
			flushNow()
		}
	}
}

func (e *RoundExporter) work(id int, ch <-chan flush) {
	for f := range ch {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.ZError(e.ctx, "fetchlog: sink panicked", errs.New("panic").Wrap(), "worker", id, "recover", r)
				}
			}()
			e.sink(e.ctx, f.triggerID, f.bySource)
		}()
	}
}

// Close stops accepting new rounds, hands whatever remains to the workers,
// and returns once the scheduler has stopped. It does not wait for Sink
// calls still running or queued on the workers to finish.
func (e *RoundExporter) Close() {
	e.cancel()
	close(e.in)
	<-e.done
}
