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

// Package codec implements the deterministic byte layouts for every
// engine key this server writes. Every engine key begins with exactly
// one DataType tag byte; codec is the single place that knows how to
// build and take those keys apart.
package codec

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// DataType tags every engine key. User-datum tags (the ones a forward
// scan of [MinPrefix, MaxPrefix] must visit exactly once per live
// entry) are kept contiguous and low-valued; bookkeeping tags that must
// never show up in a keyspace-wide scan (sizes, the by-score index, the
// binlog) live outside that band.
type DataType byte

const (
	// User-datum tags. Order matters: MinPrefix..MaxPrefix must be a
	// contiguous band so a single forward iterator visits every live
	// user entry (dump, cluster range moves) without stepping into
	// bookkeeping keys.
	DataKV    DataType = 0x01
	DataHash  DataType = 0x02
	DataZSet  DataType = 0x03
	DataQueue DataType = 0x04

	MinPrefix = DataKV
	MaxPrefix = DataQueue

	// Reserved tags: bookkeeping only, never surfaced by a user-facing
	// range scan.
	DataHashSize   DataType = 0x11
	DataZSetScore  DataType = 0x12
	DataZSetSize   DataType = 0x13
	DataQueueSize  DataType = 0x14
	DataBinlog     DataType = 0x20
	DataClusterMap DataType = 0x21
)

const (
	hashFieldSep  = '='
	zscoreKeySep  = '='
	negativeScore = '-'
	nonNegScore   = '0'
)

// MaxNameLen is the limit imposed by the single length byte that
// prefixes every collection name.
const MaxNameLen = 255

func putLen8(buf []byte, b []byte) error {
	if len(b) > MaxNameLen {
		return errors.Errorf("name/key too long: %d > %d", len(b), MaxNameLen)
	}
	buf[0] = byte(len(b))
	copy(buf[1:], b)
	return nil
}

// EncodeKVKey builds the engine key for a plain KV pair.
func EncodeKVKey(key []byte) []byte {
	buf := make([]byte, 1+len(key))
	buf[0] = byte(DataKV)
	copy(buf[1:], key)
	return buf
}

// DecodeKVKey recovers the user key from an engine key built by
// EncodeKVKey.
func DecodeKVKey(enc []byte) ([]byte, error) {
	if len(enc) < 1 || DataType(enc[0]) != DataKV {
		return nil, errors.Errorf("not a KV key: %x", enc)
	}
	return enc[1:], nil
}

// EncodeHashKey builds the engine key for one hash field.
func EncodeHashKey(name, field []byte) ([]byte, error) {
	if len(name) > MaxNameLen {
		return nil, errors.Errorf("hash name too long: %d", len(name))
	}
	buf := make([]byte, 1+1+len(name)+1+len(field))
	buf[0] = byte(DataHash)
	if err := putLen8(buf[1:], name); err != nil {
		return nil, err
	}
	off := 1 + 1 + len(name)
	buf[off] = hashFieldSep
	copy(buf[off+1:], field)
	return buf, nil
}

// DecodeHashKey recovers (name, field) from an engine key built by
// EncodeHashKey.
func DecodeHashKey(enc []byte) (name, field []byte, err error) {
	if len(enc) < 1 || DataType(enc[0]) != DataHash {
		return nil, nil, errors.Errorf("not a HASH key: %x", enc)
	}
	rest := enc[1:]
	name, rest, err = readLen8(rest)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) < 1 || rest[0] != hashFieldSep {
		return nil, nil, errors.New("malformed HASH key: missing separator")
	}
	return name, rest[1:], nil
}

// EncodeHashSizeKey builds the bookkeeping key holding a hash's live
// field count.
func EncodeHashSizeKey(name []byte) ([]byte, error) {
	if len(name) > MaxNameLen {
		return nil, errors.Errorf("hash name too long: %d", len(name))
	}
	buf := make([]byte, 1+len(name))
	buf[0] = byte(DataHashSize)
	copy(buf[1:], name)
	return buf, nil
}

// EncodeZSetKey builds the engine key for one zset (name, member) entry.
func EncodeZSetKey(name, key []byte) ([]byte, error) {
	if len(name) > MaxNameLen || len(key) > MaxNameLen {
		return nil, errors.New("zset name or key too long")
	}
	buf := make([]byte, 1+1+len(name)+1+len(key))
	buf[0] = byte(DataZSet)
	if err := putLen8(buf[1:], name); err != nil {
		return nil, err
	}
	off := 1 + 1 + len(name)
	if err := putLen8(buf[off:], key); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeZSetKey recovers (name, member) from an engine key built by
// EncodeZSetKey.
func DecodeZSetKey(enc []byte) (name, key []byte, err error) {
	if len(enc) < 1 || DataType(enc[0]) != DataZSet {
		return nil, nil, errors.Errorf("not a ZSET key: %x", enc)
	}
	rest := enc[1:]
	name, rest, err = readLen8(rest)
	if err != nil {
		return nil, nil, err
	}
	key, rest, err = readLen8(rest)
	if err != nil {
		return nil, nil, err
	}
	return name, key, nil
}

// EncodeScore renders a signed score so that lexical byte order equals
// signed numeric order: a one-byte sign marker (sorting negatives
// first) followed by the score biased into unsigned space so the
// remaining 8 bytes alone already sort correctly.
func EncodeScore(score int64) []byte {
	buf := make([]byte, 9)
	if score < 0 {
		buf[0] = negativeScore
	} else {
		buf[0] = nonNegScore
	}
	biased := uint64(score) ^ (uint64(1) << 63)
	binary.BigEndian.PutUint64(buf[1:], biased)
	return buf
}

// DecodeScore is the inverse of EncodeScore.
func DecodeScore(buf []byte) (int64, error) {
	if len(buf) != 9 {
		return 0, errors.Errorf("malformed score: %d bytes", len(buf))
	}
	biased := binary.BigEndian.Uint64(buf[1:])
	return int64(biased ^ (uint64(1) << 63)), nil
}

// EncodeZSetScoreKey builds the by-score secondary index key.
func EncodeZSetScoreKey(name, key []byte, score int64) ([]byte, error) {
	if len(name) > MaxNameLen {
		return nil, errors.New("zset name too long")
	}
	scoreBuf := EncodeScore(score)
	buf := make([]byte, 1+1+len(name)+len(scoreBuf)+1+len(key))
	buf[0] = byte(DataZSetScore)
	if err := putLen8(buf[1:], name); err != nil {
		return nil, err
	}
	off := 1 + 1 + len(name)
	copy(buf[off:], scoreBuf)
	off += len(scoreBuf)
	buf[off] = zscoreKeySep
	copy(buf[off+1:], key)
	return buf, nil
}

// DecodeZSetScoreKey recovers (name, member, score) from a by-score key.
func DecodeZSetScoreKey(enc []byte) (name []byte, key []byte, score int64, err error) {
	if len(enc) < 1 || DataType(enc[0]) != DataZSetScore {
		return nil, nil, 0, errors.Errorf("not a ZSCORE key: %x", enc)
	}
	rest := enc[1:]
	name, rest, err = readLen8(rest)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(rest) < 9 {
		return nil, nil, 0, errors.New("malformed ZSCORE key: truncated score")
	}
	score, err = DecodeScore(rest[:9])
	if err != nil {
		return nil, nil, 0, err
	}
	rest = rest[9:]
	if len(rest) < 1 || rest[0] != zscoreKeySep {
		return nil, nil, 0, errors.New("malformed ZSCORE key: missing separator")
	}
	return name, rest[1:], score, nil
}

// EncodeZSetSizeKey builds the bookkeeping key holding a zset's entry
// count.
func EncodeZSetSizeKey(name []byte) ([]byte, error) {
	if len(name) > MaxNameLen {
		return nil, errors.New("zset name too long")
	}
	buf := make([]byte, 1+len(name))
	buf[0] = byte(DataZSetSize)
	copy(buf[1:], name)
	return buf, nil
}

// EncodeQueueItemKey builds the engine key for one queue slot.
func EncodeQueueItemKey(name []byte, seq uint64) ([]byte, error) {
	if len(name) > MaxNameLen {
		return nil, errors.New("queue name too long")
	}
	buf := make([]byte, 1+1+len(name)+8)
	buf[0] = byte(DataQueue)
	if err := putLen8(buf[1:], name); err != nil {
		return nil, err
	}
	off := 1 + 1 + len(name)
	binary.BigEndian.PutUint64(buf[off:], seq)
	return buf, nil
}

// DecodeQueueItemKey recovers (name, seq) from an engine key built by
// EncodeQueueItemKey.
func DecodeQueueItemKey(enc []byte) (name []byte, seq uint64, err error) {
	if len(enc) < 1 || DataType(enc[0]) != DataQueue {
		return nil, 0, errors.Errorf("not a QUEUE key: %x", enc)
	}
	rest := enc[1:]
	name, rest, err = readLen8(rest)
	if err != nil {
		return nil, 0, err
	}
	if len(rest) != 8 {
		return nil, 0, errors.New("malformed QUEUE key: bad seq width")
	}
	return name, binary.BigEndian.Uint64(rest), nil
}

// EncodeQueueSizeKey builds the bookkeeping key holding a queue's size.
func EncodeQueueSizeKey(name []byte) ([]byte, error) {
	if len(name) > MaxNameLen {
		return nil, errors.New("queue name too long")
	}
	buf := make([]byte, 1+len(name))
	buf[0] = byte(DataQueueSize)
	copy(buf[1:], name)
	return buf, nil
}

// EncodeBinlogKey builds the engine key under which one binlog record
// with the given sequence number is stored.
func EncodeBinlogKey(seq uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(DataBinlog)
	binary.BigEndian.PutUint64(buf[1:], seq)
	return buf
}

// DecodeBinlogKey recovers the sequence number from a binlog engine key.
func DecodeBinlogKey(enc []byte) (uint64, error) {
	if len(enc) != 9 || DataType(enc[0]) != DataBinlog {
		return 0, errors.Errorf("not a BINLOG key: %x", enc)
	}
	return binary.BigEndian.Uint64(enc[1:]), nil
}

func readLen8(b []byte) (value, rest []byte, err error) {
	if len(b) < 1 {
		return nil, nil, errors.New("truncated length byte")
	}
	n := int(b[0])
	if len(b) < 1+n {
		return nil, nil, errors.New("truncated length-prefixed value")
	}
	return b[1 : 1+n], b[1+n:], nil
}

// Prefix returns the one-byte tag prefix for a scan bound, e.g. to
// build [Prefix(DataKV), Prefix(DataKV+1)) as an iteration bound over
// every KV key.
func Prefix(t DataType) []byte {
	return []byte{byte(t)}
}
