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
	"bytes"
	"sort"
	"sync"
)

// MemEngine is a trivial in-memory Engine used by unit tests that
// exercise codec/binlog/store logic without touching disk.
type MemEngine struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemEngine returns an empty MemEngine.
func NewMemEngine() *MemEngine {
	return &MemEngine{data: make(map[string][]byte)}
}

func (e *MemEngine) Get(key []byte) ([]byte, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (e *MemEngine) NewBatch() Batch {
	return &memBatch{}
}

type memOp struct {
	del   bool
	key   []byte
	value []byte
}

type memBatch struct {
	ops []memOp
}

func (b *memBatch) Put(key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.ops = append(b.ops, memOp{key: k, value: v})
}

func (b *memBatch) Delete(key []byte) {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, memOp{del: true, key: k})
}

func (b *memBatch) Len() int { return len(b.ops) }

func (b *memBatch) Reset() { b.ops = nil }

func (e *MemEngine) Write(b Batch) error {
	mb := b.(*memBatch)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, op := range mb.ops {
		if op.del {
			delete(e.data, string(op.key))
		} else {
			e.data[string(op.key)] = op.value
		}
	}
	return nil
}

func (e *MemEngine) NewIterator(start, end []byte, reverse bool) Iterator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.data))
	for k := range e.data {
		kb := []byte(k)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	return &memIterator{e: e, keys: keys, pos: -1}
}

func (e *MemEngine) Close() error { return nil }

type memIterator struct {
	e    *MemEngine
	keys []string
	pos  int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *memIterator) Value() []byte {
	it.e.mu.RLock()
	defer it.e.mu.RUnlock()
	v := it.e.data[it.keys[it.pos]]
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (it *memIterator) Err() error   { return nil }
func (it *memIterator) Close() error { return nil }
