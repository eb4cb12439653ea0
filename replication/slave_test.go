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

package replication

import (
	"testing"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/codec"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/meta"
)

func newTestSlave() (*Slave, engine.Engine) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		panic(err)
	}
	return &Slave{ID: "s1", Eng: eng, Log: log}, eng
}

func TestApplyKSetWritesValueAndAdvancesSeq(t *testing.T) {
	s, eng := newTestSlave()
	key := codec.EncodeKVKey([]byte("foo"))
	rec := &binlog.Record{Seq: 1, Type: binlog.SYNC, Cmd: binlog.CmdKSet, Key: key}
	status := &meta.SlaveStatus{}

	if err := s.apply(rec, []byte("bar"), status); err != nil {
		t.Fatal(err)
	}

	val, ok, err := eng.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(val) != "bar" {
		t.Fatalf("got val=%q ok=%v, want bar/true", val, ok)
	}
	if status.LastSeq != 1 {
		t.Fatalf("LastSeq = %d, want 1", status.LastSeq)
	}
}

func TestApplyKDelRemovesValue(t *testing.T) {
	s, eng := newTestSlave()
	key := codec.EncodeKVKey([]byte("foo"))
	batch := eng.NewBatch()
	batch.Put(key, []byte("bar"))
	if err := eng.Write(batch); err != nil {
		t.Fatal(err)
	}

	rec := &binlog.Record{Seq: 1, Type: binlog.SYNC, Cmd: binlog.CmdKDel, Key: key}
	status := &meta.SlaveStatus{}
	if err := s.apply(rec, nil, status); err != nil {
		t.Fatal(err)
	}

	_, ok, err := eng.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestApplyCopyTracksLastKeyUntilEnd(t *testing.T) {
	s, _ := newTestSlave()
	key := codec.EncodeKVKey([]byte("foo"))
	status := &meta.SlaveStatus{}

	rec := &binlog.Record{Seq: 1, Type: binlog.COPY, Cmd: binlog.CmdKSet, Key: key}
	if err := s.apply(rec, []byte("bar"), status); err != nil {
		t.Fatal(err)
	}
	if string(status.LastKey) != string(key) {
		t.Fatalf("LastKey = %q, want %q", status.LastKey, key)
	}

	end := &binlog.Record{Seq: 2, Type: binlog.COPY, Cmd: binlog.CmdEnd}
	if err := s.apply(end, nil, status); err != nil {
		t.Fatal(err)
	}
	if status.LastKey != nil {
		t.Fatalf("LastKey = %q, want nil after COPY/END", status.LastKey)
	}
	if status.LastSeq != 2 {
		t.Fatalf("LastSeq = %d, want 2", status.LastSeq)
	}
}

func TestApplyMirrorSlaveRewritesLogTypeToMirror(t *testing.T) {
	s, _ := newTestSlave()
	s.IsMirror = true
	key := codec.EncodeKVKey([]byte("foo"))
	rec := &binlog.Record{Seq: 1, Type: binlog.SYNC, Cmd: binlog.CmdKSet, Key: key}
	status := &meta.SlaveStatus{}

	if err := s.apply(rec, []byte("bar"), status); err != nil {
		t.Fatal(err)
	}

	last, err := s.Log.FindLast()
	if err != nil {
		t.Fatal(err)
	}
	if last.Type != binlog.MIRROR {
		t.Fatalf("Type = %v, want MIRROR (a mirror slave re-tags every record it logs locally)", last.Type)
	}
}
