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

package netio

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
)

// proto is which wire format a Link has negotiated.
type proto uint8

const (
	protoSSDB proto = iota
	protoRESP
)

// Link owns one client connection: its socket, a growable input
// buffer that frames are parsed out of, a buffered writer, and the
// bookkeeping spec.md §3.4 calls for (remote address, auth flag,
// timestamps, ignore_key_range). ID is a per-connection correlation id
// attached to every log line for this link's lifetime.
type Link struct {
	ID   string
	conn net.Conn
	w    *bufio.Writer

	mu     sync.Mutex
	inbuf  []byte
	closed bool

	RemoteAddr string
	Authed     bool

	// IgnoreKeyRange is set by the internal `_mig_ignore_range` command
	// so a cluster-migration peer can bypass range gating (Open
	// Question decision #3, SPEC_FULL.md).
	IgnoreKeyRange bool

	proto proto

	CreatedAt    time.Time
	LastActivity time.Time
}

// NewLink wraps conn.
func NewLink(conn net.Conn) *Link {
	now := time.Now()
	return &Link{
		ID:           uuid.NewString(),
		conn:         conn,
		w:            bufio.NewWriter(conn),
		RemoteAddr:   conn.RemoteAddr().String(),
		proto:        protoSSDB,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// ReadRequest blocks until one complete request has been parsed off
// the connection, switching to RESP for the rest of the connection's
// life the first time it sees a leading '*' (Open Question decision
// #2: no renegotiation path back to SSDB framing).
func (l *Link) ReadRequest() (*Request, error) {
	readBuf := make([]byte, 64*1024)
	for {
		if req, ok, err := l.tryParse(); err != nil {
			return nil, err
		} else if ok {
			return req, nil
		}
		n, err := l.conn.Read(readBuf)
		if n > 0 {
			l.mu.Lock()
			l.inbuf = append(l.inbuf, readBuf[:n]...)
			l.mu.Unlock()
			l.LastActivity = time.Now()
		}
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
}

func (l *Link) tryParse() (*Request, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.inbuf) == 0 {
		return nil, false, nil
	}
	if l.proto == protoSSDB && l.inbuf[0] == '*' {
		l.proto = protoRESP
	}
	if l.proto == protoRESP {
		req, consumed, err := decodeRESP(l.inbuf)
		if err == ErrIncompleteFrame {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		l.inbuf = l.inbuf[consumed:]
		return req, true, nil
	}
	records, consumed, err := decodeBlock(l.inbuf)
	if err == ErrIncompleteFrame {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	l.inbuf = l.inbuf[consumed:]
	if len(records) == 0 {
		return nil, false, nil
	}
	return &Request{Cmd: string(records[0]), Args: records[1:]}, true, nil
}

// WriteResponse frames and flushes resp using whichever protocol this
// link has negotiated.
func (l *Link) WriteResponse(resp *Response) error {
	if l.proto == protoRESP {
		if _, err := l.w.Write(encodeRESP(resp)); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(l.w.Flush())
	}
	records := make([][]byte, 0, 1+len(resp.Data))
	records = append(records, []byte(resp.Status))
	records = append(records, resp.Data...)
	if err := writeBlock(l.w, records); err != nil {
		return err
	}
	return errors.Trace(l.w.Flush())
}

// WriteRaw writes pre-framed bytes directly to the output buffer,
// without flushing. The dump and sync140 handlers stream their frames
// through WriteRecords instead.
func (l *Link) WriteRaw(b []byte) error {
	_, err := l.w.Write(b)
	return errors.Trace(err)
}

// WriteRecords writes one SSDB block of records and flushes it,
// satisfying dump.FrameSink and replication's frame sink need alike.
func (l *Link) WriteRecords(records [][]byte) error {
	if err := writeBlock(l.w, records); err != nil {
		return err
	}
	return errors.Trace(l.w.Flush())
}

// Flush flushes any buffered but unwritten bytes.
func (l *Link) Flush() error { return errors.Trace(l.w.Flush()) }

// Close closes the underlying connection. It is safe to call more
// than once.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Trace(l.conn.Close())
}

// RawConn exposes the underlying net.Conn for code that needs direct
// socket options (e.g. the accept path setting TCP_NODELAY/keepalive).
func (l *Link) RawConn() net.Conn { return l.conn }
