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

// HSetResult distinguishes an insert from an update without folding
// the distinction into an error (spec.md §4.2: "hset returns 1 on
// insert, 0 on update, -1 on error").
type HSetResult int

// HSetResult values.
const (
	HSetUpdated  HSetResult = 0
	HSetInserted HSetResult = 1
)

// HGet reads one hash field.
func (s *Store) HGet(name, field []byte) ([]byte, bool, error) {
	if err := checkNameKey(name, field); err != nil {
		return nil, false, err
	}
	enc, err := codec.EncodeHashKey(name, field)
	if err != nil {
		return nil, false, err
	}
	val, ok, err := s.Engine.Get(enc)
	return val, ok, errors.Trace(err)
}

// HSet sets name[field] = value, bumping the size counter only on a
// true insert, and returns which happened.
func (s *Store) HSet(typ binlog.LogType, name, field, value []byte) (HSetResult, error) {
	if err := checkNameKey(name, field); err != nil {
		return 0, err
	}
	enc, err := codec.EncodeHashKey(name, field)
	if err != nil {
		return 0, err
	}
	_, existed, err := s.Engine.Get(enc)
	if err != nil {
		return 0, errors.Trace(err)
	}

	txn := s.Log.Begin()
	defer txn.Rollback()
	txn.Put(enc, value)
	if !existed {
		if err := s.bumpHSizeLocked(txn, name, 1); err != nil {
			return 0, err
		}
	}
	txn.AddLog(typ, binlog.CmdHSet, enc)
	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	if existed {
		return HSetUpdated, nil
	}
	return HSetInserted, nil
}

// HDel removes one hash field, decrementing the size counter if it
// existed. Deleting an absent field is a no-op: it returns nil without
// opening a transaction or writing a binlog record.
func (s *Store) HDel(typ binlog.LogType, name, field []byte) error {
	if err := checkNameKey(name, field); err != nil {
		return err
	}
	enc, err := codec.EncodeHashKey(name, field)
	if err != nil {
		return err
	}
	_, existed, err := s.Engine.Get(enc)
	if err != nil {
		return errors.Trace(err)
	}
	if !existed {
		return nil
	}

	txn := s.Log.Begin()
	defer txn.Rollback()
	txn.Del(enc)
	if err := s.bumpHSizeLocked(txn, name, -1); err != nil {
		return err
	}
	txn.AddLog(typ, binlog.CmdHDel, enc)
	return errors.Trace(txn.Commit())
}

// HIncr parses the existing field value as a signed decimal integer (0
// if missing or malformed), adds by, stores and returns the new value.
func (s *Store) HIncr(typ binlog.LogType, name, field []byte, by int64) (int64, error) {
	if err := checkNameKey(name, field); err != nil {
		return 0, err
	}
	enc, err := codec.EncodeHashKey(name, field)
	if err != nil {
		return 0, err
	}
	old, existed, err := s.Engine.Get(enc)
	if err != nil {
		return 0, errors.Trace(err)
	}
	next := parseInt64(old) + by

	txn := s.Log.Begin()
	defer txn.Rollback()
	txn.Put(enc, []byte(formatInt64(next)))
	if !existed {
		if err := s.bumpHSizeLocked(txn, name, 1); err != nil {
			return 0, err
		}
	}
	txn.AddLog(typ, binlog.CmdHSet, enc)
	if err := txn.Commit(); err != nil {
		return 0, errors.Trace(err)
	}
	return next, nil
}

// HSize returns the number of live fields in name.
func (s *Store) HSize(name []byte) (int64, error) {
	enc, err := codec.EncodeHashSizeKey(name)
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

// HScan returns up to limit (field, value) pairs of name starting at
// startField.
func (s *Store) HScan(name, startField, endField []byte, limit int) ([][2][]byte, error) {
	it, err := NewHashFieldIterator(s.Engine, name, startField, endField, limit, false)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out [][2][]byte
	for it.Next() {
		out = append(out, [2][]byte{append([]byte(nil), it.Field()...), append([]byte(nil), it.Value()...)})
	}
	return out, it.Err()
}

func (s *Store) bumpHSizeLocked(txn *binlog.Transaction, name []byte, delta int64) error {
	enc, err := codec.EncodeHashSizeKey(name)
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
