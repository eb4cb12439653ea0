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
	"bufio"
	"context"
	"net"
	"strconv"
	"time"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/meta"
	"github.com/ekjotsingh/kvserver/util/logutil"
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

// idleTimeout closes the connection to the primary if no frame (not
// even a NOOP heartbeat, which the primary sends at least every 3s) is
// seen for this long — a hundred times the primary's own heartbeat period,
// grounded on slave.cpp's read timeout handling.
const idleTimeout = 300 * time.Second

// Slave reconnects to a primary's sync140 endpoint and applies every
// frame it streams, checkpointing progress through meta.Store so a
// restart resumes instead of re-copying. Grounded on
// original_source/src/slave.cpp, redesigned as a single retry loop
// instead of a dedicated OS thread plus condition-variable reconnect
// signal — an idiomatic Go loop with context cancellation does the
// same job.
type Slave struct {
	ID       string
	Addr     string
	Eng      engine.Engine
	Log      *binlog.Queue
	Meta     *meta.Store
	IsMirror bool

	// ReconnectDelay is how long to wait after a dropped connection
	// before retrying; defaults to 3s if zero.
	ReconnectDelay time.Duration
}

// Run blocks, reconnecting to Addr and replaying frames until ctx is
// cancelled.
func (s *Slave) Run(ctx context.Context) {
	delay := s.ReconnectDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := s.runOnce(ctx); err != nil {
			logutil.BgLogger().Warn("replication: slave session ended, retrying",
				zap.String("addr", s.Addr), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Slave) runOnce(ctx context.Context) error {
	status, err := s.Meta.LoadSlaveStatus(s.ID)
	if err != nil {
		return errors.Trace(err)
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	args := [][]byte{
		[]byte("sync140"),
		[]byte(strconv.FormatUint(status.LastSeq, 10)),
	}
	if len(status.LastKey) == 0 {
		// A slave resuming a frozen SYNC checkpoint must send its
		// last_key as empty, the same invariant init() relies on to
		// pick SYNC over COPY: last_key is only ever non-empty while
		// actively copying.
		args = append(args, []byte(""))
	} else {
		args = append(args, status.LastKey)
	}
	if s.IsMirror {
		args = append(args, []byte("mirror"))
	}
	w := bufio.NewWriter(conn)
	if err := writeBlock(w, args); err != nil {
		return err
	}

	r := bufio.NewReader(conn)
	reader := &frameReader{r: r}
	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		records, err := reader.next()
		if err != nil {
			return errors.Trace(err)
		}
		if len(records) == 0 {
			continue
		}
		rec, err := binlog.DecodeRecord(records[0])
		if err != nil {
			return errors.Trace(err)
		}
		var val []byte
		if len(records) > 1 {
			val = records[1]
		}
		if err := s.apply(rec, val, &status); err != nil {
			return err
		}
		if err := s.Meta.SaveSlaveStatus(s.ID, status); err != nil {
			return errors.Trace(err)
		}
	}
}

// apply replays one record against the local engine and re-records
// every record in the local binlog (typed MIRROR when this slave is a
// mirror) so a downstream replica chained off this one sees the same
// mutation.
func (s *Slave) apply(rec *binlog.Record, val []byte, status *meta.SlaveStatus) error {
	txn := s.Log.Begin()
	defer txn.Rollback()

	switch rec.Cmd {
	case binlog.CmdKSet, binlog.CmdHSet, binlog.CmdZSet, binlog.CmdQSet, binlog.CmdQPushBack, binlog.CmdQPushFront:
		if val != nil {
			txn.Put(rec.Key, val)
		}
	case binlog.CmdKDel, binlog.CmdHDel, binlog.CmdZDel, binlog.CmdQPopBack, binlog.CmdQPopFront:
		txn.Del(rec.Key)
	case binlog.CmdBegin, binlog.CmdEnd, binlog.CmdNone:
		// COPY/BEGIN, COPY/END and NOOP carry no data mutation.
	}

	logType := rec.Type
	if s.IsMirror {
		logType = binlog.MIRROR
	}
	txn.AddLog(logType, rec.Cmd, rec.Key)
	if err := txn.Commit(); err != nil {
		return errors.Trace(err)
	}

	if rec.Type == binlog.COPY && rec.Cmd == binlog.CmdEnd {
		// Freeze last_key at COPY/END so a crash mid-SYNC resumes from
		// the checkpointed sequence rather than replaying the copy.
		status.LastKey = nil
	} else if rec.Type == binlog.COPY {
		status.LastKey = append([]byte(nil), rec.Key...)
	}
	if rec.Seq > status.LastSeq {
		status.LastSeq = rec.Seq
	}
	return nil
}

// frameReader pulls one SSDB block at a time off a buffered reader,
// reusing the same `<len>\n<bytes>\n` framing netio.decodeBlock parses,
// since replication speaks the plain SSDB wire format regardless of
// whatever protocol ordinary clients negotiated on their own links.
type frameReader struct {
	r   *bufio.Reader
	buf []byte
}

func (f *frameReader) next() ([][]byte, error) {
	for {
		records, consumed, err := decodeSyncBlock(f.buf)
		if err == nil {
			f.buf = f.buf[consumed:]
			return records, nil
		}
		if err != errIncompleteSyncFrame {
			return nil, err
		}
		chunk := make([]byte, 64*1024)
		n, rerr := f.r.Read(chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}
