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
	"encoding/binary"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/codec"
	"github.com/pingcap/errors"
)

// Reserved queue pointer slots and the user-item sequence band, per
// spec.md §3.1/§4.2. QFrontSeq and QBackSeq are themselves encoded as
// ordinary queue item keys (EncodeQueueItemKey(name, QFrontSeq)) whose
// value is the big-endian current head/tail pointer, so they live
// inside the same QUEUE tag band without colliding with any reachable
// user item (the user band starts well above 3).
const (
	QFrontSeq   uint64 = 2
	QBackSeq    uint64 = 3
	QItemMinSeq uint64 = 10000
	QItemMaxSeq uint64 = 1<<63 - 1
	QItemSeqInit uint64 = 1 << 62
)

// ErrQueueFull is returned when a push would carry a queue pointer
// outside [QItemMinSeq, QItemMaxSeq].
var ErrQueueFull = errors.New("full")

func encodeSeq(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeSeq(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

func (s *Store) queuePointer(name []byte, slot uint64) (uint64, bool, error) {
	enc, err := codec.EncodeQueueItemKey(name, slot)
	if err != nil {
		return 0, false, err
	}
	val, ok, err := s.Engine.Get(enc)
	if err != nil || !ok {
		return 0, false, errors.Trace(err)
	}
	v, ok := decodeSeq(val)
	if !ok {
		return 0, false, errors.New("malformed queue pointer")
	}
	return v, true, nil
}

// QSize returns the number of live items in queue name.
func (s *Store) QSize(name []byte) (int64, error) {
	enc, err := codec.EncodeQueueSizeKey(name)
	if err != nil {
		return 0, err
	}
	val, ok, err := s.Engine.Get(enc)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if !ok {
		return 0, nil
	}
	return decodeCounter(val), nil
}

// QFront returns the item at the head of name.
func (s *Store) QFront(name []byte) ([]byte, bool, error) {
	return s.queuePeek(name, true)
}

// QBack returns the item at the tail of name.
func (s *Store) QBack(name []byte) ([]byte, bool, error) {
	return s.queuePeek(name, false)
}

func (s *Store) queuePeek(name []byte, front bool) ([]byte, bool, error) {
	slot := QBackSeq
	if front {
		slot = QFrontSeq
	}
	seq, ok, err := s.queuePointer(name, slot)
	if err != nil || !ok {
		return nil, false, err
	}
	enc, err := codec.EncodeQueueItemKey(name, seq)
	if err != nil {
		return nil, false, err
	}
	val, ok, err := s.Engine.Get(enc)
	return val, ok, errors.Trace(err)
}

// QPushBack appends value to the tail of name and returns the new size.
func (s *Store) QPushBack(typ binlog.LogType, name, value []byte) (int64, error) {
	return s.queuePush(typ, name, value, false)
}

// QPushFront prepends value to the head of name and returns the new size.
func (s *Store) QPushFront(typ binlog.LogType, name, value []byte) (int64, error) {
	return s.queuePush(typ, name, value, true)
}

func (s *Store) queuePush(typ binlog.LogType, name, value []byte, front bool) (int64, error) {
	if err := checkNameKey(name, nil); err != nil {
		return 0, err
	}
	frontSeq, hasFront, err := s.queuePointer(name, QFrontSeq)
	if err != nil {
		return 0, err
	}
	backSeq, hasBack, err := s.queuePointer(name, QBackSeq)
	if err != nil {
		return 0, err
	}
	empty := !hasFront || !hasBack

	var itemSeq uint64
	var newFront, newBack uint64
	if empty {
		itemSeq = QItemSeqInit
		newFront, newBack = itemSeq, itemSeq
	} else if front {
		if frontSeq <= QItemMinSeq {
			return 0, errors.Trace(ErrQueueFull)
		}
		itemSeq = frontSeq - 1
		newFront, newBack = itemSeq, backSeq
	} else {
		if backSeq >= QItemMaxSeq {
			return 0, errors.Trace(ErrQueueFull)
		}
		itemSeq = backSeq + 1
		newFront, newBack = frontSeq, itemSeq
	}

	itemKey, err := codec.EncodeQueueItemKey(name, itemSeq)
	if err != nil {
		return 0, err
	}
	frontKey, err := codec.EncodeQueueItemKey(name, QFrontSeq)
	if err != nil {
		return 0, err
	}
	backKey, err := codec.EncodeQueueItemKey(name, QBackSeq)
	if err != nil {
		return 0, err
	}
	sizeKey, err := codec.EncodeQueueSizeKey(name)
	if err != nil {
		return 0, err
	}

	txn := s.Log.Begin()
	defer txn.Rollback()
	txn.Put(itemKey, value)
	txn.Put(frontKey, encodeSeq(newFront))
	txn.Put(backKey, encodeSeq(newBack))
	cmd := binlog.CmdQPushBack
	if front {
		cmd = binlog.CmdQPushFront
	}
	txn.AddLog(typ, cmd, itemKey)

	cur, ok, err := s.Engine.Get(sizeKey)
	if err != nil {
		return 0, errors.Trace(err)
	}
	next := int64(1)
	if ok {
		next = decodeCounter(cur) + 1
	}
	txn.Put(sizeKey, encodeCounter(next))

	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	return next, nil
}

// QPopBack removes and returns the tail item of name.
func (s *Store) QPopBack(typ binlog.LogType, name []byte) ([]byte, bool, error) {
	return s.queuePop(typ, name, false)
}

// QPopFront removes and returns the head item of name.
func (s *Store) QPopFront(typ binlog.LogType, name []byte) ([]byte, bool, error) {
	return s.queuePop(typ, name, true)
}

func (s *Store) queuePop(typ binlog.LogType, name []byte, front bool) ([]byte, bool, error) {
	frontSeq, hasFront, err := s.queuePointer(name, QFrontSeq)
	if err != nil {
		return nil, false, err
	}
	backSeq, hasBack, err := s.queuePointer(name, QBackSeq)
	if err != nil {
		return nil, false, err
	}
	if !hasFront || !hasBack {
		return nil, false, nil
	}

	popSeq := backSeq
	if front {
		popSeq = frontSeq
	}
	itemKey, err := codec.EncodeQueueItemKey(name, popSeq)
	if err != nil {
		return nil, false, err
	}
	val, ok, err := s.Engine.Get(itemKey)
	if err != nil {
		return nil, false, errors.Trace(err)
	}
	if !ok {
		return nil, false, nil
	}

	sizeKey, err := codec.EncodeQueueSizeKey(name)
	if err != nil {
		return nil, false, err
	}
	cur, _, err := s.Engine.Get(sizeKey)
	if err != nil {
		return nil, false, errors.Trace(err)
	}
	remaining := decodeCounter(cur) - 1

	txn := s.Log.Begin()
	defer txn.Rollback()
	txn.Del(itemKey)
	cmd := binlog.CmdQPopBack
	if front {
		cmd = binlog.CmdQPopFront
	}
	txn.AddLog(typ, cmd, itemKey)

	if remaining <= 0 {
		frontKey, err := codec.EncodeQueueItemKey(name, QFrontSeq)
		if err != nil {
			return nil, false, err
		}
		backKey, err := codec.EncodeQueueItemKey(name, QBackSeq)
		if err != nil {
			return nil, false, err
		}
		txn.Del(frontKey)
		txn.Del(backKey)
		txn.Del(sizeKey)
	} else {
		frontKey, err := codec.EncodeQueueItemKey(name, QFrontSeq)
		if err != nil {
			return nil, false, err
		}
		backKey, err := codec.EncodeQueueItemKey(name, QBackSeq)
		if err != nil {
			return nil, false, err
		}
		if front {
			txn.Put(frontKey, encodeSeq(frontSeq+1))
			txn.Put(backKey, encodeSeq(backSeq))
		} else {
			txn.Put(frontKey, encodeSeq(frontSeq))
			txn.Put(backKey, encodeSeq(backSeq-1))
		}
		txn.Put(sizeKey, encodeCounter(remaining))
	}

	if err := txn.Commit(); err != nil {
		return nil, false, errors.Trace(err)
	}
	return val, true, nil
}

// QSlice returns up to count items starting at the offset'th item from
// the head (offset may be negative to count from the tail, matching
// the original's qslice indexing).
func (s *Store) QSlice(name []byte, offset int64, count int64) ([][]byte, error) {
	frontSeq, hasFront, err := s.queuePointer(name, QFrontSeq)
	if err != nil {
		return nil, err
	}
	backSeq, hasBack, err := s.queuePointer(name, QBackSeq)
	if err != nil {
		return nil, err
	}
	if !hasFront || !hasBack {
		return nil, nil
	}
	size := int64(backSeq-frontSeq) + 1

	start := offset
	if start < 0 {
		start = size + start
	}
	if start < 0 {
		start = 0
	}
	if start >= size {
		return nil, nil
	}
	stop := start + count - 1
	if count < 0 || stop >= size {
		stop = size - 1
	}

	startSeq := frontSeq + uint64(start)
	endSeq := frontSeq + uint64(stop)
	it, err := NewQueueIterator(s.Engine, name, startSeq, endSeq, -1, false)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out [][]byte
	for it.Next() {
		out = append(out, append([]byte(nil), it.Value()...))
	}
	return out, it.Err()
}

// QFix rescans the live QUEUE item entries of name (excluding the
// reserved front/back pointer slots) and rewrites size/front/back to
// match what it observes, per spec.md §4.2's corruption-recovery note.
func (s *Store) QFix(name []byte) (int64, error) {
	it, err := NewQueueIterator(s.Engine, name, QItemMinSeq, QItemMaxSeq, -1, false)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var count int64
	var first, last uint64
	havePointer := false
	for it.Next() {
		seq := it.Seq()
		if seq == QFrontSeq || seq == QBackSeq {
			continue
		}
		if !havePointer {
			first = seq
			havePointer = true
		}
		last = seq
		count++
	}
	if err := it.Err(); err != nil {
		return 0, err
	}

	frontKey, err := codec.EncodeQueueItemKey(name, QFrontSeq)
	if err != nil {
		return 0, err
	}
	backKey, err := codec.EncodeQueueItemKey(name, QBackSeq)
	if err != nil {
		return 0, err
	}
	sizeKey, err := codec.EncodeQueueSizeKey(name)
	if err != nil {
		return 0, err
	}

	txn := s.Log.Begin()
	defer txn.Rollback()
	if count == 0 {
		txn.Del(frontKey)
		txn.Del(backKey)
		txn.Del(sizeKey)
	} else {
		txn.Put(frontKey, encodeSeq(first))
		txn.Put(backKey, encodeSeq(last))
		txn.Put(sizeKey, encodeCounter(count))
	}
	// qfix repairs local bookkeeping only and is never replicated
	// (original_source/src/ssdb/t_queue.cpp's qfix stages its writes
	// directly on the write batch and never calls add_log), so no
	// binlog record is staged here.
	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	return count, nil
}
