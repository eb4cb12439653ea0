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

// Package replication implements spec.md §4.4's primary/replica
// protocol: a Master replays the shared binlog.Queue to each connected
// replica over the sync140 link, and a Slave reconnects to a primary
// and applies whatever it streams back. Both sides are grounded on
// original_source/src/backend_sync.cpp and slave.cpp, translated from
// one pthread-per-client into one goroutine-per-session — the same
// redesign netio.Server already makes for ordinary client links.
package replication

import (
	"strconv"
	"time"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/codec"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/netio"
	"github.com/ekjotsingh/kvserver/util/logutil"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

// Tunables lifted straight from backend_sync.cpp's TICK_INTERVAL_MS /
// NOOP_IDLES and its hard-coded copy limits.
const (
	tickInterval  = 300 * time.Millisecond
	noopIdleTicks = 3000 / 300
	copyMaxItems  = 1000
	copyMaxBytes  = 2 * 1024 * 1024
	copyMaxTime   = 3 * time.Second
)

type syncStatus int

const (
	statusInit syncStatus = iota
	statusCopy
	statusSync
	statusOutOfSync
)

func (s syncStatus) String() string {
	switch s {
	case statusInit:
		return "init"
	case statusCopy:
		return "copy"
	case statusSync:
		return "sync"
	case statusOutOfSync:
		return "out_of_sync"
	default:
		return "unknown"
	}
}

// Master drives every primary-side replication session. One is
// constructed per server process and registered with netio via
// netio.RegisterSyncCommand(procs, master.Serve).
type Master struct {
	Eng engine.Engine
	Log *binlog.Queue

	// SyncSpeed throttles each session to at most SyncSpeed MB/s of
	// outbound frame data, 0 meaning unthrottled (spec.md sync_speed).
	SyncSpeed int
}

// NewMaster constructs a Master over the server's shared engine and
// binlog.
func NewMaster(eng engine.Engine, log *binlog.Queue, syncSpeed int) *Master {
	return &Master{Eng: eng, Log: log, SyncSpeed: syncSpeed}
}

// Serve implements netio.SyncHandler. It owns link for the lifetime of
// one replication session: parses the replica's starting (last_seq,
// last_key[, mirror]) off req, then alternates between copy and sync
// steps until a write fails (the replica disconnected).
func (m *Master) Serve(l *netio.Link, req *netio.Request) {
	sess := newSession(m, l)
	sess.init(req)
	logutil.BgLogger().Info("replication: session started",
		zap.String("link", l.ID), zap.String("remote", l.RemoteAddr), zap.String("status", sess.status.String()))

	idle := 0
	for {
		if sess.status == statusOutOfSync {
			if err := sess.reset(); err != nil {
				sess.logEnd(err)
				return
			}
			continue
		}

		wrote, err := sess.sync()
		if err != nil {
			sess.logEnd(err)
			return
		}
		if sess.status == statusCopy {
			copied, err := sess.copy()
			if err != nil {
				sess.logEnd(err)
				return
			}
			wrote = wrote || copied
		}

		if !wrote {
			idle++
			if idle >= noopIdleTicks {
				idle = 0
				if err := sess.noop(); err != nil {
					sess.logEnd(err)
					return
				}
			} else {
				time.Sleep(tickInterval)
				continue
			}
		} else {
			idle = 0
		}

		if m.SyncSpeed > 0 && sess.lastFrameBytes > 0 {
			seconds := float64(sess.lastFrameBytes) / (1024 * 1024) / float64(m.SyncSpeed)
			time.Sleep(time.Duration(seconds * float64(time.Second)))
		}
		sess.lastFrameBytes = 0
	}
}

// session is the per-replica state backend_sync.cpp calls Client.
type session struct {
	master *Master
	link   *netio.Link

	status       syncStatus
	lastSeq      uint64
	lastKey      []byte
	lastNoopSeq  uint64
	isMirror     bool
	iter         engine.Iterator
	iterOpenedAt time.Time

	lastFrameBytes int
}

func newSession(m *Master, l *netio.Link) *session {
	return &session{master: m, link: l}
}

// init reads the replica's (last_seq, last_key[, mirror]) and decides
// whether the session starts in COPY or SYNC, mirroring
// BackendSync::Client::init.
func (s *session) init(req *netio.Request) {
	if len(req.Args) > 0 {
		if n, err := strconv.ParseUint(string(req.Args[0]), 10, 64); err == nil {
			s.lastSeq = n
		}
	}
	if len(req.Args) > 1 {
		s.lastKey = append([]byte(nil), req.Args[1]...)
	}
	if len(req.Args) > 2 && string(req.Args[2]) == "mirror" {
		s.isMirror = true
	}
	if len(s.lastKey) == 0 && s.lastSeq != 0 {
		s.status = statusSync
		s.sendLog(&binlog.Record{Seq: s.lastSeq, Type: binlog.COPY, Cmd: binlog.CmdEnd}, nil)
		return
	}
	s.status = statusCopy
}

// reset drops back to COPY from scratch, the recovery path taken when
// the replica fell far enough behind that the binlog no longer holds
// the records it needs (spec.md's OUT_OF_SYNC).
func (s *session) reset() error {
	s.closeIter()
	s.status = statusCopy
	s.lastSeq = 0
	s.lastKey = nil
	return s.sendLog(&binlog.Record{Type: binlog.COPY, Cmd: binlog.CmdBegin}, nil)
}

// noop sends an idle heartbeat so the replica's own read timeout never
// fires while nothing has changed.
func (s *session) noop() error {
	seq := s.lastSeq
	if s.status == statusCopy && len(s.lastKey) == 0 {
		seq = 0
	} else {
		s.lastNoopSeq = s.lastSeq
	}
	return s.sendLog(&binlog.Record{Seq: seq, Type: binlog.NOOP, Cmd: binlog.CmdNone}, nil)
}

// sync advances by at most one binlog record per call, returning
// whether it wrote anything. It moves the session to OUT_OF_SYNC when
// the log no longer holds the record the replica needs (the record
// after a nonzero lastSeq is gone), matching BackendSync::Client::sync.
func (s *session) sync() (bool, error) {
	for {
		expect := s.lastSeq + 1
		var rec *binlog.Record
		var err error
		if s.status == statusCopy && s.lastSeq == 0 {
			rec, err = s.master.Log.FindLast()
		} else {
			rec, err = s.master.Log.FindNext(expect)
		}
		if errors.Cause(err) == binlog.ErrNotFound {
			return false, nil
		}
		if err != nil {
			return false, errors.Trace(err)
		}

		if s.status == statusCopy && bytesGreater(rec.Key, s.lastKey) {
			s.lastSeq = rec.Seq
			s.closeIter()
			continue
		}
		if s.lastSeq != 0 && rec.Seq != expect {
			s.status = statusOutOfSync
			return true, nil
		}
		s.lastSeq = rec.Seq

		if rec.Type == binlog.MIRROR && s.isMirror {
			if s.lastSeq-s.lastNoopSeq >= 1000 {
				return false, s.noop()
			}
			continue
		}
		return true, s.sendMutation(rec)
	}
}

// copy streams up to copyMaxItems/copyMaxBytes of raw data ahead of
// sync so a fresh or far-behind replica catches up without the
// session ever blocking longer than copyMaxTime in one call.
func (s *session) copy() (bool, error) {
	if s.iter == nil {
		var start []byte
		if len(s.lastKey) == 0 {
			start = codec.Prefix(codec.MinPrefix)
		} else {
			// lastKey was already sent; a trailing zero byte excludes
			// it from this iterator's range without needing a
			// separate exclusive-start API on engine.Engine.
			start = append(append([]byte(nil), s.lastKey...), 0x00)
		}
		end := codec.Prefix(codec.MaxPrefix + 1)
		s.iter = s.master.Eng.NewIterator(start, end, false)
		s.iterOpenedAt = time.Now()
	}

	started := time.Now()
	wrote := false
	count := 0
	for {
		if count >= copyMaxItems || s.lastFrameBytes >= copyMaxBytes {
			return wrote, nil
		}
		if time.Since(started) > copyMaxTime {
			return wrote, nil
		}
		if !s.iter.Next() {
			err := s.iter.Err()
			s.closeIter()
			if err != nil {
				return wrote, errors.Trace(err)
			}
			return wrote, s.finishCopy()
		}
		key := s.iter.Key()
		if len(key) == 0 {
			continue
		}
		if codec.DataType(key[0]) > codec.MaxPrefix {
			s.closeIter()
			return wrote, s.finishCopy()
		}
		cmd, ok := copyCmdFor(codec.DataType(key[0]))
		if !ok {
			continue
		}
		s.lastKey = append([]byte(nil), key...)
		count++
		rec := &binlog.Record{Seq: s.lastSeq, Type: binlog.COPY, Cmd: cmd, Key: append([]byte(nil), key...)}
		if err := s.sendLog(rec, s.iter.Value()); err != nil {
			return wrote, err
		}
		wrote = true
	}
}

func (s *session) finishCopy() error {
	s.status = statusSync
	return s.sendLog(&binlog.Record{Seq: s.lastSeq, Type: binlog.COPY, Cmd: binlog.CmdEnd}, nil)
}

func copyCmdFor(t codec.DataType) (binlog.Cmd, bool) {
	switch t {
	case codec.DataKV:
		return binlog.CmdKSet, true
	case codec.DataHash:
		return binlog.CmdHSet, true
	case codec.DataZSet:
		return binlog.CmdZSet, true
	case codec.DataQueue:
		return binlog.CmdQPushBack, true
	default:
		return binlog.CmdNone, false
	}
}

// sendMutation looks the record's value up (for *SET/*PUSH commands)
// and forwards it, or forwards a bare delete, skipping records whose
// key no longer exists (the original's raw_get returning "not found").
func (s *session) sendMutation(rec *binlog.Record) error {
	switch rec.Cmd {
	case binlog.CmdKSet, binlog.CmdHSet, binlog.CmdZSet, binlog.CmdQSet, binlog.CmdQPushBack, binlog.CmdQPushFront:
		val, ok, err := s.master.Eng.Get(rec.Key)
		if err != nil {
			return errors.Trace(err)
		}
		if !ok {
			return nil
		}
		return s.sendLog(rec, val)
	default:
		return s.sendLog(rec, nil)
	}
}

func (s *session) sendLog(rec *binlog.Record, val []byte) error {
	payload := rec.Encode()
	records := [][]byte{payload}
	if val != nil {
		records = append(records, val)
	}
	s.lastFrameBytes += len(payload) + len(val)
	return errors.Trace(s.link.WriteRecords(records))
}

func (s *session) closeIter() {
	if s.iter != nil {
		s.iter.Close()
		s.iter = nil
	}
}

func (s *session) logEnd(err error) {
	s.closeIter()
	logutil.BgLogger().Info("replication: session ended",
		zap.String("link", s.link.ID), zap.Error(err))
}

func bytesGreater(a, b []byte) bool {
	return string(a) > string(b)
}
