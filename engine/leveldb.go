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

package engine

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/goleveldb/leveldb"
	"github.com/pingcap/goleveldb/leveldb/opt"
	"github.com/pingcap/goleveldb/leveldb/util"
)

// LevelDBEngine is an Engine backed by a single goleveldb database.
type LevelDBEngine struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a goleveldb database at dir.
func OpenLevelDB(dir string) (*LevelDBEngine, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{
		BlockCacheCapacity:    32 << 20,
		WriteBuffer:           16 << 20,
		CompactionTableSize:   8 << 20,
		OpenFilesCacheCapacity: 256,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &LevelDBEngine{db: db}, nil
}

// Get implements Engine.
func (e *LevelDBEngine) Get(key []byte) ([]byte, bool, error) {
	val, err := e.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Trace(err)
	}
	return val, true, nil
}

// NewBatch implements Engine.
func (e *LevelDBEngine) NewBatch() Batch {
	return &levelDBBatch{b: new(leveldb.Batch)}
}

// Write implements Engine.
func (e *LevelDBEngine) Write(b Batch) error {
	lb, ok := b.(*levelDBBatch)
	if !ok {
		return errors.New("engine: mismatched batch type")
	}
	if err := e.db.Write(lb.b, nil); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// NewIterator implements Engine.
func (e *LevelDBEngine) NewIterator(start, end []byte, reverse bool) Iterator {
	rng := &util.Range{Start: start, Limit: end}
	it := e.db.NewIterator(rng, nil)
	return &levelDBIterator{it: it, reverse: reverse, started: false}
}

// Close implements Engine.
func (e *LevelDBEngine) Close() error {
	return errors.Trace(e.db.Close())
}

type levelDBBatch struct {
	b   *leveldb.Batch
	len int
}

func (b *levelDBBatch) Put(key, value []byte) {
	b.b.Put(key, value)
	b.len++
}

func (b *levelDBBatch) Delete(key []byte) {
	b.b.Delete(key)
	b.len++
}

func (b *levelDBBatch) Len() int { return b.len }

func (b *levelDBBatch) Reset() {
	b.b.Reset()
	b.len = 0
}

type levelDBIterator struct {
	it      iteratorLike
	reverse bool
	started bool
}

// iteratorLike narrows goleveldb's iterator.Iterator to what we use,
// so tests can fake it without pulling in the real engine.
type iteratorLike interface {
	Next() bool
	Prev() bool
	Last() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

func (it *levelDBIterator) Next() bool {
	if !it.started {
		it.started = true
		if it.reverse {
			return it.it.Last()
		}
		return it.it.Next()
	}
	if it.reverse {
		return it.it.Prev()
	}
	return it.it.Next()
}

func (it *levelDBIterator) Key() []byte   { return cloneBytes(it.it.Key()) }
func (it *levelDBIterator) Value() []byte { return cloneBytes(it.it.Value()) }
func (it *levelDBIterator) Err() error    { return errors.Trace(it.it.Error()) }
func (it *levelDBIterator) Close() error  { it.it.Release(); return nil }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
