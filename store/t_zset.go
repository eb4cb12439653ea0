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
	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/codec"
	"github.com/pingcap/errors"
)

// ZSetResult mirrors HSetResult for zset writes.
type ZSetResult int

// ZSetResult values.
const (
	ZSetUnchanged ZSetResult = 0 // key already existed: score was equal, or was updated to the new score
	ZSetInserted  ZSetResult = 1
)

// ZGet returns the score of key in zset name.
func (s *Store) ZGet(name, key []byte) (int64, bool, error) {
	if err := checkNameKey(name, key); err != nil {
		return 0, false, err
	}
	enc, err := codec.EncodeZSetKey(name, key)
	if err != nil {
		return 0, false, err
	}
	val, ok, err := s.Engine.Get(enc)
	if err != nil || !ok {
		return 0, ok, errors.Trace(err)
	}
	score := parseInt64(val)
	return score, true, nil
}

// ZSet sets key's score in zset name. On score change it rewrites both
// the ZSET and ZSCORE entries; on an equal score it is a no-op and
// returns ZSetUnchanged without writing a binlog record (spec.md
// §4.2).
func (s *Store) ZSet(typ binlog.LogType, name, key []byte, score int64) (ZSetResult, error) {
	if err := checkNameKey(name, key); err != nil {
		return 0, err
	}
	zsetKey, err := codec.EncodeZSetKey(name, key)
	if err != nil {
		return 0, err
	}
	old, existed, err := s.Engine.Get(zsetKey)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if existed {
		oldScore := parseInt64(old)
		if oldScore == score {
			return ZSetUnchanged, nil
		}
	}

	txn := s.Log.Begin()
	defer txn.Rollback()

	if existed {
		oldScore := parseInt64(old)
		oldScoreKey, err := codec.EncodeZSetScoreKey(name, key, oldScore)
		if err != nil {
			return 0, err
		}
		txn.Del(oldScoreKey)
	}
	newScoreKey, err := codec.EncodeZSetScoreKey(name, key, score)
	if err != nil {
		return 0, err
	}
	txn.Put(zsetKey, []byte(formatInt64(score)))
	txn.Put(newScoreKey, nil)
	if !existed {
		if err := s.bumpZSizeLocked(txn, name, 1); err != nil {
			return 0, err
		}
	}
	txn.AddLog(typ, binlog.CmdZSet, zsetKey)
	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	if existed {
		return ZSetUnchanged, nil
	}
	return ZSetInserted, nil
}

// ZIncr adds by to key's current score (0 if absent) and stores the
// result, same as ZSet with a computed score.
func (s *Store) ZIncr(typ binlog.LogType, name, key []byte, by int64) (int64, error) {
	old, _, err := s.ZGet(name, key)
	if err != nil {
		return 0, err
	}
	next := old + by
	if _, err := s.ZSet(typ, name, key, next); err != nil {
		return 0, err
	}
	return next, nil
}

// ZDel removes key from zset name.
func (s *Store) ZDel(typ binlog.LogType, name, key []byte) error {
	if err := checkNameKey(name, key); err != nil {
		return err
	}
	zsetKey, err := codec.EncodeZSetKey(name, key)
	if err != nil {
		return err
	}
	old, existed, err := s.Engine.Get(zsetKey)
	if err != nil {
		return errors.Trace(err)
	}
	if !existed {
		return nil
	}
	score := parseInt64(old)
	scoreKey, err := codec.EncodeZSetScoreKey(name, key, score)
	if err != nil {
		return err
	}

	txn := s.Log.Begin()
	defer txn.Rollback()
	txn.Del(zsetKey)
	txn.Del(scoreKey)
	if err := s.bumpZSizeLocked(txn, name, -1); err != nil {
		return err
	}
	txn.AddLog(typ, binlog.CmdZDel, zsetKey)
	return errors.Trace(txn.Commit())
}

// ZSize returns the number of live entries in zset name.
func (s *Store) ZSize(name []byte) (int64, error) {
	enc, err := codec.EncodeZSetSizeKey(name)
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

// ZRank returns key's zero-based rank in ascending score order, or -1
// if absent. It is O(n): spec.md §4.2 specifies a linear scan of the
// by-score index, not an indexed lookup.
func (s *Store) ZRank(name, key []byte) (int64, error) {
	return s.zrankDirection(name, key, false)
}

// ZRRank is ZRank in descending score order.
func (s *Store) ZRRank(name, key []byte) (int64, error) {
	return s.zrankDirection(name, key, true)
}

func (s *Store) zrankDirection(name, key []byte, reverse bool) (int64, error) {
	it, err := NewZScoreIterator(s.Engine, name, -1, reverse)
	if err != nil {
		return -1, err
	}
	defer it.Close()
	var rank int64
	for it.Next() {
		if string(it.Key()) == string(key) {
			return rank, it.Err()
		}
		rank++
	}
	if err := it.Err(); err != nil {
		return -1, err
	}
	return -1, nil
}

// ZRangeEntry is one (member, score) pair in score order.
type ZRangeEntry struct {
	Key   []byte
	Score int64
}

// ZRange returns entries ranked [startRank, stopRank] (inclusive,
// zero-based) in ascending score order.
func (s *Store) ZRange(name []byte, startRank, stopRank int64) ([]ZRangeEntry, error) {
	return s.zrangeDirection(name, startRank, stopRank, false)
}

// ZRRange is ZRange in descending score order.
func (s *Store) ZRRange(name []byte, startRank, stopRank int64) ([]ZRangeEntry, error) {
	return s.zrangeDirection(name, startRank, stopRank, true)
}

func (s *Store) zrangeDirection(name []byte, startRank, stopRank int64, reverse bool) ([]ZRangeEntry, error) {
	it, err := NewZScoreIterator(s.Engine, name, -1, reverse)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []ZRangeEntry
	var rank int64
	for it.Next() {
		if rank >= startRank && (stopRank < 0 || rank <= stopRank) {
			out = append(out, ZRangeEntry{Key: append([]byte(nil), it.Key()...), Score: it.Score()})
		}
		rank++
		if stopRank >= 0 && rank > stopRank {
			break
		}
	}
	return out, it.Err()
}

// ZRangeByScore returns entries with minScore <= score <= maxScore in
// ascending score order.
func (s *Store) ZRangeByScore(name []byte, minScore, maxScore int64, limit int) ([]ZRangeEntry, error) {
	it, err := NewZScoreIterator(s.Engine, name, -1, false)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []ZRangeEntry
	for it.Next() {
		sc := it.Score()
		if sc < minScore {
			continue
		}
		if sc > maxScore {
			break
		}
		out = append(out, ZRangeEntry{Key: append([]byte(nil), it.Key()...), Score: sc})
		if limit >= 0 && len(out) >= limit {
			break
		}
	}
	return out, it.Err()
}

func (s *Store) bumpZSizeLocked(txn *binlog.Transaction, name []byte, delta int64) error {
	enc, err := codec.EncodeZSetSizeKey(name)
	if err != nil {
		return err
	}
	cur, ok, err := s.Engine.Get(enc)
	if err != nil {
		return errors.Trace(err)
	}
	next := delta
	if ok {
		next = decodeCounter(cur) + delta
	}
	if next <= 0 {
		txn.Del(enc)
		return nil
	}
	txn.Put(enc, encodeCounter(next))
	return nil
}
