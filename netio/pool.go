// Copyright 2025 Ekjot Singh
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package netio

import (
	"context"
	"sync"

	"github.com/ekjotsingh/kvserver/util/logutil"
	"go.uber.org/zap"
)

// Pool is the Go-idiomatic form of spec.md §4.5's "fixed pool of N
// threads pulling off an MPSC job queue": a buffered channel stands in
// for the job queue (any number of goroutines may send; the pool's own
// goroutines are the single consumers), and each worker just invokes
// the job. A job is a plain func() that handles its own result (the
// closures netio submits write their own response), so there is no
// shared completion fd and no per-job completion channel.
type Pool struct {
	name string
	jobs chan func()
	wg   sync.WaitGroup
}

// NewPool starts n worker goroutines named name (used in log lines),
// consuming from a job queue of the given depth.
func NewPool(name string, n, queueDepth int) *Pool {
	p := &Pool{name: name, jobs: make(chan func(), queueDepth)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(idx int) {
	defer p.wg.Done()
	ctx := logutil.WithKeyValue(context.Background(), "pool", p.name)
	for job := range p.jobs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logutil.L(ctx).Error("netio: worker job panicked", zap.Any("recover", r), zap.Int("worker", idx))
				}
			}()
			job()
		}()
	}
}

// Submit enqueues a job. It blocks if the pool's queue is full,
// matching the bounded-queue backpressure of the original's MPSC
// queue.
func (p *Pool) Submit(job func()) {
	p.jobs <- job
}

// Close stops accepting new jobs and waits for in-flight jobs to
// finish.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
