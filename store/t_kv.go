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

// Get returns (value, true, nil) if key exists.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	if err := checkNameKey(nil, key); err != nil {
		return nil, false, err
	}
	val, ok, err := s.Engine.Get(codec.EncodeKVKey(key))
	return val, ok, errors.Trace(err)
}

// Set writes key=value and logs a KSET record of the given replication
// type.
func (s *Store) Set(typ binlog.LogType, key, value []byte) error {
	if err := checkNameKey(nil, key); err != nil {
		return err
	}
	txn := s.Log.Begin()
	defer txn.Rollback()
	enc := codec.EncodeKVKey(key)
	txn.Put(enc, value)
	txn.AddLog(typ, binlog.CmdKSet, enc)
	return errors.Trace(txn.Commit())
}

// Del removes key, logging a KDEL record regardless of whether the key
// existed (matching the original's unconditional delete semantics).
func (s *Store) Del(typ binlog.LogType, key []byte) error {
	if err := checkNameKey(nil, key); err != nil {
		return err
	}
	txn := s.Log.Begin()
	defer txn.Rollback()
	enc := codec.EncodeKVKey(key)
	txn.Del(enc)
	txn.AddLog(typ, binlog.CmdKDel, enc)
	return errors.Trace(txn.Commit())
}

// Incr parses the existing value as a signed decimal integer (0 if
// missing or malformed, per spec.md §4.2), adds by, stores and returns
// the new value.
func (s *Store) Incr(typ binlog.LogType, key []byte, by int64) (int64, error) {
	if err := checkNameKey(nil, key); err != nil {
		return 0, err
	}
	enc := codec.EncodeKVKey(key)
	old, _, err := s.Engine.Get(enc)
	if err != nil {
		return 0, errors.Trace(err)
	}
	next := parseInt64(old) + by
	txn := s.Log.Begin()
	defer txn.Rollback()
	txn.Put(enc, []byte(formatInt64(next)))
	txn.AddLog(typ, binlog.CmdKSet, enc)
	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	return next, nil
}

// MultiSet bundles N sets plus N binlog entries into one commit,
// returning the number of pairs written.
func (s *Store) MultiSet(typ binlog.LogType, pairs map[string][]byte) (int, error) {
	txn := s.Log.Begin()
	defer txn.Rollback()
	for k, v := range pairs {
		if err := checkNameKey(nil, []byte(k)); err != nil {
			return 0, err
		}
		enc := codec.EncodeKVKey([]byte(k))
		txn.Put(enc, v)
		txn.AddLog(typ, binlog.CmdKSet, enc)
	}
	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	return len(pairs), nil
}

// MultiDel bundles N deletes plus N binlog entries into one commit.
func (s *Store) MultiDel(typ binlog.LogType, keys [][]byte) (int, error) {
	txn := s.Log.Begin()
	defer txn.Rollback()
	for _, k := range keys {
		if err := checkNameKey(nil, k); err != nil {
			return 0, err
		}
		enc := codec.EncodeKVKey(k)
		txn.Del(enc)
		txn.AddLog(typ, binlog.CmdKDel, enc)
	}
	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	return len(keys), nil
}

// Keys returns up to limit keys in [start, end), a read-only scan that
// never touches the binlog mutex.
func (s *Store) Keys(start, end []byte, limit int) ([][]byte, error) {
	it := NewKVIterator(s.Engine, start, end, limit, false)
	defer it.Close()
	var out [][]byte
	for it.Next() {
		out = append(out, append([]byte(nil), it.Key()...))
	}
	return out, it.Err()
}

func formatInt64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
