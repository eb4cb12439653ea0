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
	"strconv"

	"github.com/pingcap/errors"
)

// errIncompleteSyncFrame mirrors netio's ErrIncompleteFrame: the
// replica's own framer needs the identical `<len>\n<bytes>\n...\n`
// block parser netio.Link speaks, but as an unexported type in a
// different package it cannot be imported directly, so this is a
// narrow, deliberate duplication of that one wire format rather than
// introducing a shared-but-otherwise-pointless internal package.
var errIncompleteSyncFrame = errors.New("replication: incomplete frame")

func decodeSyncBlock(buf []byte) (records [][]byte, consumed int, err error) {
	pos := 0
	for {
		if pos >= len(buf) {
			return nil, 0, errIncompleteSyncFrame
		}
		nl := indexByte(buf[pos:], '\n')
		if nl < 0 {
			return nil, 0, errIncompleteSyncFrame
		}
		lenLine := trimCR(buf[pos : pos+nl])
		pos += nl + 1
		if len(lenLine) == 0 {
			return records, pos, nil
		}
		n, convErr := strconv.Atoi(string(lenLine))
		if convErr != nil || n < 0 {
			return nil, 0, errors.Errorf("replication: malformed length field %q", lenLine)
		}
		if pos+n+1 > len(buf) {
			return nil, 0, errIncompleteSyncFrame
		}
		rec := buf[pos : pos+n]
		pos += n
		if buf[pos] != '\n' {
			return nil, 0, errIncompleteSyncFrame
		}
		pos++
		records = append(records, rec)
	}
}

func writeBlock(w *bufio.Writer, records [][]byte) error {
	for _, r := range records {
		if _, err := w.WriteString(strconv.Itoa(len(r))); err != nil {
			return errors.Trace(err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.Trace(err)
		}
		if _, err := w.Write(r); err != nil {
			return errors.Trace(err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.Trace(err)
		}
	}
	if err := w.WriteByte('\n'); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.Flush())
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}
