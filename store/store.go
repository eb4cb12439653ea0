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

// Package store implements the KV, HASH, ZSET and QUEUE data models on
// top of codec and binlog. Every mutating method that changes data
// opens exactly one binlog.Transaction, stages its engine writes and
// compensating bookkeeping, stages one (or, for multi_set/multi_del,
// several) binlog records, and commits — the one path spec.md §4.2
// describes. QFix is the exception: it commits its bookkeeping
// repairs without staging any binlog record.
package store

import (
	"encoding/binary"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/pingcap/errors"
)

// SSDBKeyLenMax is the implementation-defined ceiling spec.md §4.2
// calls SSDB_KEY_LEN_MAX: a key in a type that length-prefixes with a
// single byte cannot exceed it.
const SSDBKeyLenMax = 255

// Store binds the typed operations to one engine and the binlog queue
// that couples their writes to replicated log records.
type Store struct {
	Engine engine.Engine
	Log    *binlog.Queue
}

// New builds a Store.
func New(eng engine.Engine, log *binlog.Queue) *Store {
	return &Store{Engine: eng, Log: log}
}

// encodeCounter/decodeCounter give size-bookkeeping keys the int64
// engine value spec.md §3.1 calls for.
func encodeCounter(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeCounter(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func checkNameKey(name, key []byte) error {
	if len(name) > SSDBKeyLenMax {
		return errors.Errorf("name too long: %d > %d", len(name), SSDBKeyLenMax)
	}
	if len(key) > SSDBKeyLenMax {
		return errors.Errorf("key too long: %d > %d", len(key), SSDBKeyLenMax)
	}
	return nil
}

// parseInt64 mirrors spec.md §4.2's incr/hincr/zincr parsing rule:
// malformed input yields 0, not an error.
func parseInt64(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	neg := false
	i := 0
	if b[0] == '-' || b[0] == '+' {
		neg = b[0] == '-'
		i = 1
	}
	if i == len(b) {
		return 0
	}
	var v int64
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0
		}
		v = v*10 + int64(b[i]-'0')
	}
	if neg {
		v = -v
	}
	return v
}
