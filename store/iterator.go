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

package store

import (
	"bytes"

	"github.com/ekjotsingh/kvserver/codec"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/pingcap/errors"
)

// baseIterator wraps an engine.Iterator with a limit. The [start, end)
// bound itself is enforced by the underlying engine iterator; baseIterator
// only adds the limit cutoff, matching spec.md §4.6's "next() returns
// false once limit is exhausted or end is crossed" (end is crossed by
// construction here, since every typed iterator below builds its engine
// iterator with the exact end bound it needs).
type baseIterator struct {
	it    engine.Iterator
	limit int // negative means unbounded
	count int
}

func (b *baseIterator) advance() bool {
	if b.limit >= 0 && b.count >= b.limit {
		return false
	}
	if !b.it.Next() {
		return false
	}
	b.count++
	return true
}

func (b *baseIterator) Err() error   { return b.it.Err() }
func (b *baseIterator) Close() error { return b.it.Close() }

// prefixEnd returns the smallest byte string that sorts strictly after
// every string having prefix as a prefix — the standard "exclusive
// upper bound for this prefix" trick, used whenever a typed iterator
// needs "everything under this (tag, name)" without an explicit end.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// KVIterator walks plain KV entries in [start, end) and decodes back
// to user keys, stopping at the DataKV/DataHash tag boundary by
// construction.
type KVIterator struct {
	base baseIterator
	key  []byte
}

// NewKVIterator returns a KV iterator over user keys in [start, end).
// An empty end means "through the end of the KV keyspace".
func NewKVIterator(eng engine.Engine, start, end []byte, limit int, reverse bool) *KVIterator {
	s := codec.EncodeKVKey(start)
	var e []byte
	if len(end) > 0 {
		e = codec.EncodeKVKey(end)
	} else {
		e = codec.Prefix(codec.DataKV + 1)
	}
	return &KVIterator{base: baseIterator{it: eng.NewIterator(s, e, reverse), limit: limit}}
}

func (k *KVIterator) Next() bool {
	for k.base.advance() {
		key, err := codec.DecodeKVKey(k.base.it.Key())
		if err != nil {
			continue
		}
		k.key = key
		return true
	}
	return false
}

func (k *KVIterator) Key() []byte   { return k.key }
func (k *KVIterator) Value() []byte { return k.base.it.Value() }
func (k *KVIterator) Err() error    { return k.base.Err() }
func (k *KVIterator) Close() error  { return k.base.Close() }

// HashFieldIterator walks the fields of a single hash in field order.
type HashFieldIterator struct {
	base  baseIterator
	name  []byte
	field []byte
}

// NewHashFieldIterator returns an iterator over fields of name in
// [startField, endField); an empty endField means "to the end of this
// hash".
func NewHashFieldIterator(eng engine.Engine, name, startField, endField []byte, limit int, reverse bool) (*HashFieldIterator, error) {
	s, err := codec.EncodeHashKey(name, startField)
	if err != nil {
		return nil, err
	}
	var e []byte
	if len(endField) > 0 {
		e, err = codec.EncodeHashKey(name, endField)
		if err != nil {
			return nil, err
		}
	} else {
		nameOnly, _ := codec.EncodeHashKey(name, nil)
		e = prefixEnd(nameOnly[:len(nameOnly)-1]) // drop the trailing '=' separator before bounding
	}
	return &HashFieldIterator{base: baseIterator{it: eng.NewIterator(s, e, reverse), limit: limit}, name: name}, nil
}

func (h *HashFieldIterator) Next() bool {
	for h.base.advance() {
		n, f, err := codec.DecodeHashKey(h.base.it.Key())
		if err != nil || !bytes.Equal(n, h.name) {
			return false
		}
		h.field = f
		return true
	}
	return false
}

func (h *HashFieldIterator) Field() []byte { return h.field }
func (h *HashFieldIterator) Value() []byte { return h.base.it.Value() }
func (h *HashFieldIterator) Err() error     { return h.base.Err() }
func (h *HashFieldIterator) Close() error   { return h.base.Close() }

// ZSetIterator walks zset (name, member) entries of one zset in member
// order.
type ZSetIterator struct {
	base baseIterator
	name []byte
	key  []byte
}

// NewZSetIterator returns an iterator over members of name in
// [startKey, endKey).
func NewZSetIterator(eng engine.Engine, name, startKey, endKey []byte, limit int, reverse bool) (*ZSetIterator, error) {
	s, err := codec.EncodeZSetKey(name, startKey)
	if err != nil {
		return nil, err
	}
	var e []byte
	if len(endKey) > 0 {
		e, err = codec.EncodeZSetKey(name, endKey)
		if err != nil {
			return nil, err
		}
	} else {
		nameOnly, _ := codec.EncodeZSetKey(name, nil)
		e = prefixEnd(nameOnly[:len(nameOnly)-1]) // drop the trailing zero-length-key byte before bounding
	}
	return &ZSetIterator{base: baseIterator{it: eng.NewIterator(s, e, reverse), limit: limit}, name: name}, nil
}

func (z *ZSetIterator) Next() bool {
	for z.base.advance() {
		n, k, err := codec.DecodeZSetKey(z.base.it.Key())
		if err != nil || !bytes.Equal(n, z.name) {
			return false
		}
		z.key = k
		return true
	}
	return false
}

func (z *ZSetIterator) Key() []byte   { return z.key }
func (z *ZSetIterator) Value() []byte { return z.base.it.Value() }
func (z *ZSetIterator) Err() error     { return z.base.Err() }
func (z *ZSetIterator) Close() error   { return z.base.Close() }

// ZScoreIterator walks the by-score secondary index of one zset in
// score order (ascending unless reverse).
type ZScoreIterator struct {
	base  baseIterator
	name  []byte
	key   []byte
	score int64
}

// NewZScoreIterator returns an iterator over the whole by-score index
// of name.
func NewZScoreIterator(eng engine.Engine, name []byte, limit int, reverse bool) (*ZScoreIterator, error) {
	if len(name) > codec.MaxNameLen {
		return nil, errors.Errorf("zset name too long: %d", len(name))
	}
	start := append([]byte{byte(codec.DataZSetScore)}, byte(len(name)))
	start = append(start, name...)
	end := prefixEnd(start)
	return &ZScoreIterator{base: baseIterator{it: eng.NewIterator(start, end, reverse), limit: limit}, name: name}, nil
}

func (z *ZScoreIterator) Next() bool {
	for z.base.advance() {
		n, k, sc, err := codec.DecodeZSetScoreKey(z.base.it.Key())
		if err != nil || !bytes.Equal(n, z.name) {
			return false
		}
		z.key, z.score = k, sc
		return true
	}
	return false
}

func (z *ZScoreIterator) Key() []byte  { return z.key }
func (z *ZScoreIterator) Score() int64 { return z.score }
func (z *ZScoreIterator) Err() error   { return z.base.Err() }
func (z *ZScoreIterator) Close() error { return z.base.Close() }

// QueueIterator walks queue items of one queue by sequence order.
type QueueIterator struct {
	base baseIterator
	name []byte
	seq  uint64
}

// NewQueueIterator returns an iterator over [startSeq, endSeq] items of
// name (inclusive on both ends, matching qslice's indexing).
func NewQueueIterator(eng engine.Engine, name []byte, startSeq, endSeq uint64, limit int, reverse bool) (*QueueIterator, error) {
	s, err := codec.EncodeQueueItemKey(name, startSeq)
	if err != nil {
		return nil, err
	}
	e, err := codec.EncodeQueueItemKey(name, endSeq+1)
	if err != nil {
		return nil, err
	}
	return &QueueIterator{base: baseIterator{it: eng.NewIterator(s, e, reverse), limit: limit}, name: name}, nil
}

func (q *QueueIterator) Next() bool {
	for q.base.advance() {
		n, sq, err := codec.DecodeQueueItemKey(q.base.it.Key())
		if err != nil || !bytes.Equal(n, q.name) {
			return false
		}
		q.seq = sq
		return true
	}
	return false
}

func (q *QueueIterator) Seq() uint64   { return q.seq }
func (q *QueueIterator) Value() []byte { return q.base.it.Value() }
func (q *QueueIterator) Err() error     { return q.base.Err() }
func (q *QueueIterator) Close() error   { return q.base.Close() }

// PrefixIterator walks every live user datum across the contiguous
// [MinPrefix, MaxPrefix] tag band, used by cluster range moves
// (spec.md §4.6). It yields raw, still-tagged engine keys — callers
// decode per-tag themselves.
type PrefixIterator struct {
	base baseIterator
}

// NewPrefixIterator returns an iterator over every engine key with a
// user-datum tag, optionally bounded to [start, end) of the raw engine
// key space (used by cluster range moves to ship exactly one range).
func NewPrefixIterator(eng engine.Engine, start, end []byte, limit int) *PrefixIterator {
	lo := codec.Prefix(codec.MinPrefix)
	hi := codec.Prefix(codec.MaxPrefix + 1)
	if len(start) > 0 {
		lo = start
	}
	if len(end) > 0 {
		hi = end
	}
	return &PrefixIterator{base: baseIterator{it: eng.NewIterator(lo, hi, false), limit: limit}}
}

func (p *PrefixIterator) Next() bool       { return p.base.advance() }
func (p *PrefixIterator) Key() []byte       { return p.base.it.Key() }
func (p *PrefixIterator) Value() []byte     { return p.base.it.Value() }
func (p *PrefixIterator) Err() error        { return p.base.Err() }
func (p *PrefixIterator) Close() error      { return p.base.Close() }
