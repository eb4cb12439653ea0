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

// Package engine is the narrow capability interface this server needs
// from an embedded ordered key-value store: atomic batched writes,
// point reads with their own read-snapshot, and forward/reverse range
// iteration. Everything above this package — codec, binlog, the typed
// data models — is engine-agnostic; LevelDBEngine is the one concrete
// implementation shipped here, backed by github.com/pingcap/goleveldb,
// matching the original system's own choice of an LSM-tree engine.
package engine

// Batch stages a set of puts/deletes to be applied atomically by
// Engine.Write. A Batch is not safe for concurrent use.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Len() int
	Reset()
}

// Iterator walks a bounded, directional range of engine keys. It must
// be Closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// Engine is the embedded ordered key-value store this server is layered
// on top of. Reads snapshot through the engine's own MVCC and never
// take any lock this package defines; only Write is expected to be
// externally serialized (see binlog.Transaction).
type Engine interface {
	// Get returns (value, true, nil) if key exists, (nil, false, nil)
	// if it does not, or (nil, false, err) on a storage failure.
	Get(key []byte) ([]byte, bool, error)

	// NewBatch returns an empty, engine-specific Batch.
	NewBatch() Batch

	// Write atomically applies every staged operation in b. On error
	// none of the batch's operations are visible.
	Write(b Batch) error

	// NewIterator returns an iterator over keys in [start, end). A nil
	// end means "no upper bound"; a nil start means "no lower bound".
	// When reverse is true, Next() walks from the last key in the
	// bound backwards and Key()/Value() still refer to the current
	// position.
	NewIterator(start, end []byte, reverse bool) Iterator

	// Close releases the engine's resources. It is safe to call once.
	Close() error
}
