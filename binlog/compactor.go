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

package binlog

import (
	"context"
	"time"

	"github.com/ekjotsingh/kvserver/codec"
	"github.com/ekjotsingh/kvserver/util/logutil"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

// compactBatchLimit bounds how many records a single compaction pass
// deletes, so a sudden huge backlog does not block writers for long
// under the queue mutex.
const compactBatchLimit = 10000

// Compactor trims the oldest binlog records once the log grows past
// its configured capacity, running on its own goroutine (spec.md §5:
// "binlog compaction runs its own thread").
type Compactor struct {
	q        *Queue
	interval time.Duration
}

// NewCompactor builds a Compactor that checks q every interval.
func NewCompactor(q *Queue, interval time.Duration) *Compactor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Compactor{q: q, interval: interval}
}

// Run blocks, compacting on a ticker until ctx is canceled. Call it in
// its own goroutine.
func (c *Compactor) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	logutil.BgLogger().Info("binlog compactor started")
	for {
		select {
		case <-ctx.Done():
			logutil.BgLogger().Info("binlog compactor stopped")
			return
		case <-ticker.C:
			if err := c.CompactOnce(); err != nil {
				logutil.BgLogger().Warn("binlog compaction failed", zap.Error(err))
			}
		}
	}
}

// CompactOnce deletes the oldest records if the log has grown past
// capacity, advancing minSeq. It is safe to call directly (e.g. from
// tests) without Run.
func (c *Compactor) CompactOnce() error {
	q := c.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lastSeq <= q.minSeq || q.lastSeq-q.minSeq <= q.capacity {
		return nil
	}

	target := q.lastSeq - q.capacity
	start := codec.EncodeBinlogKey(q.minSeq)
	end := codec.EncodeBinlogKey(target)

	it := q.eng.NewIterator(start, end, false)
	defer it.Close()

	batch := q.eng.NewBatch()
	var newMin uint64 = target
	count := 0
	for it.Next() {
		seq, err := codec.DecodeBinlogKey(it.Key())
		if err != nil {
			return errors.Trace(err)
		}
		batch.Delete(it.Key())
		count++
		if count >= compactBatchLimit {
			newMin = seq + 1
			break
		}
	}
	if err := it.Err(); err != nil {
		return errors.Trace(err)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := q.eng.Write(batch); err != nil {
		return errors.Trace(err)
	}
	q.advanceMinSeqLocked(newMin)
	logutil.BgLogger().Info("binlog compacted", zap.Int("deleted", count), zap.Uint64("min_seq", newMin))
	return nil
}
