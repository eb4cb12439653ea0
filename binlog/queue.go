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
	"sync"

	"github.com/ekjotsingh/kvserver/codec"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/util/logutil"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned by FindNext/FindLast when no matching record
// exists.
var ErrNotFound = errors.New("binlog: not found")

// DefaultCapacityRelease is CAPACITY for release builds (spec.md §4.1).
const DefaultCapacityRelease = 10 * 1000 * 1000

// DefaultCapacityDebug is CAPACITY for debug builds.
const DefaultCapacityDebug = 10 * 1000

// Queue is a bounded circular log of mutation records plus the one
// mutex that serializes every write system-wide (spec.md §5): binlog
// sequence numbers are a total order equal to commit order precisely
// because no two Transactions can be open at once.
type Queue struct {
	mu sync.Mutex

	eng engine.Engine

	lastSeq  uint64
	minSeq   uint64
	capacity uint64

	pending *pendingBatch
}

type pendingBatch struct {
	batch      engine.Batch
	logCount   int
	highestSeq uint64
}

// Open constructs a Queue over eng, recovering lastSeq/minSeq from
// whatever binlog records are already present.
func Open(eng engine.Engine, capacity uint64) (*Queue, error) {
	q := &Queue{eng: eng, capacity: capacity}
	last, err := q.findLastLocked()
	if err != nil && errors.Cause(err) != ErrNotFound {
		return nil, errors.Trace(err)
	}
	if err == nil {
		q.lastSeq = last.Seq
	}
	first, err := q.findNextLocked(0)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return nil, errors.Trace(err)
	}
	if err == nil {
		q.minSeq = first.Seq
	}
	return q, nil
}

// LastSeq returns the sequence number of the most recently committed
// record.
func (q *Queue) LastSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastSeq
}

// MinSeq returns the oldest sequence number still retained.
func (q *Queue) MinSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.minSeq
}

// Begin opens a Transaction, acquiring the queue's single mutex for
// its duration. Callers must pair every Begin with exactly one Commit
// or Rollback; the idiomatic shape is:
//
//	txn := q.Begin()
//	defer txn.Rollback() // no-op once Commit has run
//	...
//	return txn.Commit()
func (q *Queue) Begin() *Transaction {
	q.mu.Lock()
	q.pending = &pendingBatch{batch: q.eng.NewBatch()}
	return &Transaction{q: q}
}

// Transaction is the scoped acquisition of Queue's mutex plus an
// atomic batch bundling data writes with their binlog records
// (spec.md's Transaction, §5 / GLOSSARY).
type Transaction struct {
	q      *Queue
	closed bool
}

// Begin resets the transaction's pending batch in place. A second call
// without an intervening Commit/Rollback rolls back whatever was
// staged by the first, matching spec.md §4.1 ("nested calls roll back
// prior uncommitted work") — there is only ever one mutex holder, so
// "nested" means "called again on the same open Transaction".
func (t *Transaction) Begin() {
	if t.closed {
		return
	}
	t.q.pending = &pendingBatch{batch: t.q.eng.NewBatch()}
}

// Put stages an engine write into the pending batch.
func (t *Transaction) Put(key, value []byte) {
	if t.closed {
		return
	}
	t.q.pending.batch.Put(key, value)
}

// Del stages an engine delete into the pending batch.
func (t *Transaction) Del(key []byte) {
	if t.closed {
		return
	}
	t.q.pending.batch.Delete(key)
}

// AddLog stages a binlog record whose sequence is lastSeq + 1 +
// (records already staged in this batch), and returns that sequence.
func (t *Transaction) AddLog(typ LogType, cmd Cmd, key []byte) uint64 {
	seq := t.q.lastSeq + 1 + uint64(t.q.pending.logCount)
	rec := &Record{Seq: seq, Type: typ, Cmd: cmd, Key: key}
	t.q.pending.batch.Put(codec.EncodeBinlogKey(seq), rec.Encode())
	t.q.pending.logCount++
	if seq > t.q.pending.highestSeq {
		t.q.pending.highestSeq = seq
	}
	return seq
}

// Commit flushes the pending batch to the engine as one atomic write.
// On success lastSeq advances to the batch's highest sequence. On
// engine failure the batch is discarded, lastSeq is left unchanged,
// and the error is returned to the caller (spec.md's StorageError).
func (t *Transaction) Commit() error {
	if t.closed {
		return nil
	}
	defer t.release()
	if t.q.pending.batch.Len() == 0 {
		return nil
	}
	if err := t.q.eng.Write(t.q.pending.batch); err != nil {
		logutil.BgLogger().Error("binlog: commit failed", zap.Error(err))
		return errors.Trace(err)
	}
	if t.q.pending.highestSeq > t.q.lastSeq {
		t.q.lastSeq = t.q.pending.highestSeq
	}
	return nil
}

// Rollback discards the pending batch without touching persistent
// state. It is idempotent and safe to call after Commit.
func (t *Transaction) Rollback() {
	if t.closed {
		return
	}
	t.release()
}

func (t *Transaction) release() {
	t.q.pending = nil
	t.closed = true
	t.q.mu.Unlock()
}

// FindNext returns the lowest-sequenced record with seq' >= seq.
func (q *Queue) FindNext(seq uint64) (*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.findNextLocked(seq)
}

func (q *Queue) findNextLocked(seq uint64) (*Record, error) {
	start := codec.EncodeBinlogKey(seq)
	end := codec.Prefix(codec.DataBinlog + 1)
	it := q.eng.NewIterator(start, end, false)
	defer it.Close()
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		return nil, ErrNotFound
	}
	return DecodeRecord(it.Value())
}

// FindLast returns the highest-sequenced record, or ErrNotFound if the
// log is empty.
func (q *Queue) FindLast() (*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.findLastLocked()
}

func (q *Queue) findLastLocked() (*Record, error) {
	start := codec.Prefix(codec.DataBinlog)
	end := codec.Prefix(codec.DataBinlog + 1)
	it := q.eng.NewIterator(start, end, true)
	defer it.Close()
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		return nil, ErrNotFound
	}
	return DecodeRecord(it.Value())
}

// Update rewrites a record in place (for example to downgrade it to
// NOOP) without shifting sequence numbers. The compactor does not use
// it; it deletes old records instead.
func (q *Queue) Update(seq uint64, typ LogType, cmd Cmd, key []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec := &Record{Seq: seq, Type: typ, Cmd: cmd, Key: key}
	b := q.eng.NewBatch()
	b.Put(codec.EncodeBinlogKey(seq), rec.Encode())
	return errors.Trace(q.eng.Write(b))
}

// advanceMinSeqLocked is used by Compactor after it has deleted every
// record below newMin.
func (q *Queue) advanceMinSeqLocked(newMin uint64) {
	q.minSeq = newMin
}
