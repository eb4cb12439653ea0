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
	"net"
	"sync"
	"testing"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/codec"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/netio"
)

// frameCollector drains one side of a net.Pipe, decoding every SSDB
// block the Link under test writes, so assertions can run against the
// decoded records without the writer blocking on an unbuffered pipe.
type frameCollector struct {
	mu      sync.Mutex
	records [][][]byte
}

func newFrameCollector(conn net.Conn) *frameCollector {
	fc := &frameCollector{}
	go func() {
		var buf []byte
		chunk := make([]byte, 4096)
		for {
			n, err := conn.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
				for {
					recs, consumed, derr := decodeSyncBlock(buf)
					if derr != nil {
						break
					}
					buf = buf[consumed:]
					fc.mu.Lock()
					fc.records = append(fc.records, recs)
					fc.mu.Unlock()
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return fc
}

func (fc *frameCollector) last() [][]byte {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.records) == 0 {
		return nil
	}
	return fc.records[len(fc.records)-1]
}

func (fc *frameCollector) count() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.records)
}

func newTestLink() (*netio.Link, *frameCollector, func()) {
	server, client := net.Pipe()
	link := netio.NewLink(server)
	fc := newFrameCollector(client)
	return link, fc, func() {
		link.Close()
		client.Close()
	}
}

func waitFrames(t *testing.T, fc *frameCollector, n int) {
	t.Helper()
	for i := 0; i < 1000 && fc.count() < n; i++ {
		// decoding happens on the collector's own goroutine; give it a
		// moment to catch up without a fixed sleep.
		ch := make(chan struct{})
		go func() { close(ch) }()
		<-ch
	}
	if fc.count() < n {
		t.Fatalf("expected at least %d frames, got %d", n, fc.count())
	}
}

func TestSessionInitCopyFromScratch(t *testing.T) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMaster(eng, log, 0)
	link, _, closeFn := newTestLink()
	defer closeFn()

	sess := newSession(m, link)
	sess.init(&netio.Request{Args: nil})
	if sess.status != statusCopy {
		t.Fatalf("status = %v, want statusCopy", sess.status)
	}
}

func TestSessionInitResumeSyncSendsCopyEnd(t *testing.T) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMaster(eng, log, 0)
	link, fc, closeFn := newTestLink()
	defer closeFn()

	sess := newSession(m, link)
	sess.init(&netio.Request{Args: [][]byte{[]byte("7"), []byte("")}})
	if sess.status != statusSync {
		t.Fatalf("status = %v, want statusSync", sess.status)
	}
	waitFrames(t, fc, 1)
	rec, err := binlog.DecodeRecord(fc.last()[0])
	if err != nil {
		t.Fatal(err)
	}
	if rec.Type != binlog.COPY || rec.Cmd != binlog.CmdEnd {
		t.Fatalf("got type=%v cmd=%v, want COPY/END", rec.Type, rec.Cmd)
	}
}

func TestSessionResetSendsCopyBegin(t *testing.T) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMaster(eng, log, 0)
	link, fc, closeFn := newTestLink()
	defer closeFn()

	sess := newSession(m, link)
	sess.status = statusOutOfSync
	sess.lastSeq = 42
	sess.lastKey = []byte("stale")
	if err := sess.reset(); err != nil {
		t.Fatal(err)
	}
	if sess.status != statusCopy || sess.lastSeq != 0 || sess.lastKey != nil {
		t.Fatalf("reset left stale state: status=%v lastSeq=%d lastKey=%q", sess.status, sess.lastSeq, sess.lastKey)
	}
	waitFrames(t, fc, 1)
	rec, err := binlog.DecodeRecord(fc.last()[0])
	if err != nil {
		t.Fatal(err)
	}
	if rec.Type != binlog.COPY || rec.Cmd != binlog.CmdBegin {
		t.Fatalf("got type=%v cmd=%v, want COPY/BEGIN", rec.Type, rec.Cmd)
	}
}

func TestSessionCopyStreamsEntriesAndFinishes(t *testing.T) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		t.Fatal(err)
	}
	batch := eng.NewBatch()
	batch.Put(codec.EncodeKVKey([]byte("a")), []byte("1"))
	batch.Put(codec.EncodeKVKey([]byte("b")), []byte("2"))
	if err := eng.Write(batch); err != nil {
		t.Fatal(err)
	}

	m := NewMaster(eng, log, 0)
	link, fc, closeFn := newTestLink()
	defer closeFn()

	sess := newSession(m, link)
	sess.status = statusCopy

	for i := 0; i < 10; i++ {
		wrote, err := sess.copy()
		if err != nil {
			t.Fatal(err)
		}
		if !wrote {
			break
		}
	}
	if sess.status != statusSync {
		t.Fatalf("status = %v, want statusSync after copy drains the keyspace", sess.status)
	}
	waitFrames(t, fc, 3) // two COPY/KSET frames plus the terminal COPY/END
	seenKeys := map[string]bool{}
	for _, recs := range fc.records {
		rec, err := binlog.DecodeRecord(recs[0])
		if err != nil {
			t.Fatal(err)
		}
		if rec.Cmd == binlog.CmdKSet {
			name, err := codec.DecodeKVKey(rec.Key)
			if err != nil {
				t.Fatal(err)
			}
			seenKeys[string(name)] = true
		}
	}
	if !seenKeys["a"] || !seenKeys["b"] {
		t.Fatalf("expected both keys copied, got %v", seenKeys)
	}
}

func TestSessionSyncSendsMutationForLiveKey(t *testing.T) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		t.Fatal(err)
	}
	key := codec.EncodeKVKey([]byte("foo"))
	txn := log.Begin()
	txn.Put(key, []byte("bar"))
	txn.AddLog(binlog.SYNC, binlog.CmdKSet, key)
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	m := NewMaster(eng, log, 0)
	link, fc, closeFn := newTestLink()
	defer closeFn()

	sess := newSession(m, link)
	sess.status = statusSync

	wrote, err := sess.sync()
	if err != nil {
		t.Fatal(err)
	}
	if !wrote {
		t.Fatal("expected sync to report a write")
	}
	waitFrames(t, fc, 1)
	recs := fc.last()
	rec, err := binlog.DecodeRecord(recs[0])
	if err != nil {
		t.Fatal(err)
	}
	if rec.Cmd != binlog.CmdKSet || len(recs) != 2 || string(recs[1]) != "bar" {
		t.Fatalf("got cmd=%v frames=%d, want CmdKSet carrying value %q", rec.Cmd, len(recs), "bar")
	}
}

func TestSessionSyncMirrorLoopPreventionSkipsReplay(t *testing.T) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		t.Fatal(err)
	}
	key := codec.EncodeKVKey([]byte("foo"))
	txn := log.Begin()
	txn.Put(key, []byte("bar"))
	txn.AddLog(binlog.MIRROR, binlog.CmdKSet, key)
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	m := NewMaster(eng, log, 0)
	link, _, closeFn := newTestLink()
	defer closeFn()

	sess := newSession(m, link)
	sess.status = statusSync
	sess.isMirror = true

	wrote, err := sess.sync()
	if err != nil {
		t.Fatal(err)
	}
	if wrote {
		t.Fatal("mirrored record fed back to its own mirror replica must not be replayed")
	}
	if sess.lastSeq != 1 {
		t.Fatalf("lastSeq = %d, want 1 (sync still advances past the skipped record)", sess.lastSeq)
	}
}
