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

// Package binlog couples every data mutation with an ordered,
// replicated log record, stored inline with user data under the
// reserved DataBinlog tag. Queue plus Transaction are this
// package's two exported entry points: Transaction bundles staged
// engine writes with their log records into one atomic commit;
// Queue answers ordered lookups against whatever has already
// been committed.
package binlog

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

// LogType marks why a record exists, and in particular whether a
// replica receiving it should re-forward it to its own replicas.
type LogType uint8

// LogType values.
const (
	NOOP LogType = iota
	SYNC
	MIRROR
	COPY
)

func (t LogType) String() string {
	switch t {
	case NOOP:
		return "noop"
	case SYNC:
		return "sync"
	case MIRROR:
		return "mirror"
	case COPY:
		return "copy"
	default:
		return "unknown"
	}
}

// Cmd names the typed mutation a record describes.
type Cmd uint8

// Cmd values.
const (
	CmdNone Cmd = iota
	CmdBegin
	CmdEnd
	CmdKSet
	CmdKDel
	CmdHSet
	CmdHDel
	CmdZSet
	CmdZDel
	CmdQSet
	CmdQPushBack
	CmdQPushFront
	CmdQPopBack
	CmdQPopFront
)

func (c Cmd) String() string {
	switch c {
	case CmdNone:
		return "none"
	case CmdBegin:
		return "begin"
	case CmdEnd:
		return "end"
	case CmdKSet:
		return "kset"
	case CmdKDel:
		return "kdel"
	case CmdHSet:
		return "hset"
	case CmdHDel:
		return "hdel"
	case CmdZSet:
		return "zset"
	case CmdZDel:
		return "zdel"
	case CmdQSet:
		return "qset"
	case CmdQPushBack:
		return "qpush_back"
	case CmdQPushFront:
		return "qpush_front"
	case CmdQPopBack:
		return "qpop_back"
	case CmdQPopFront:
		return "qpop_front"
	default:
		return "unknown"
	}
}

// recordHeaderLen is be64(seq) + u8(type) + u8(cmd).
const recordHeaderLen = 10

// Record is one binlog entry: (seq, type, cmd, key). Key carries the
// fully-encoded engine key (including its codec type tag) of the data
// entry the mutation touched, so a replica can re-derive the
// user-level name/key through the same codec package it already links.
type Record struct {
	Seq  uint64
	Type LogType
	Cmd  Cmd
	Key  []byte
}

// Encode serializes r as a fixed header followed by the raw key bytes.
func (r *Record) Encode() []byte {
	buf := make([]byte, recordHeaderLen+len(r.Key))
	binary.BigEndian.PutUint64(buf, r.Seq)
	buf[8] = byte(r.Type)
	buf[9] = byte(r.Cmd)
	copy(buf[recordHeaderLen:], r.Key)
	return buf
}

// DecodeRecord is the inverse of Record.Encode.
func DecodeRecord(buf []byte) (*Record, error) {
	if len(buf) < recordHeaderLen {
		return nil, errors.Errorf("binlog: truncated record header (%d bytes)", len(buf))
	}
	key := make([]byte, len(buf)-recordHeaderLen)
	copy(key, buf[recordHeaderLen:])
	return &Record{
		Seq:  binary.BigEndian.Uint64(buf[:8]),
		Type: LogType(buf[8]),
		Cmd:  Cmd(buf[9]),
		Key:  key,
	}, nil
}
