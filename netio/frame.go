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

// Package netio is the TCP front end: SSDB wire framing, an optional
// RESP adapter, a Link per connection, a ProcMap-driven dispatcher,
// and the reader/writer worker pools spec.md §4.5 describes.
package netio

import (
	"bufio"
	"strconv"

	"github.com/pingcap/errors"
)

// MaxFrameSize bounds a single length-prefixed record, per spec.md
// §6.1.
const MaxFrameSize = 32 * 1024 * 1024

// ErrFrameTooLarge is returned when a record's declared length exceeds
// MaxFrameSize.
var ErrFrameTooLarge = errors.New("netio: frame exceeds maximum size")

// ErrIncompleteFrame signals the input buffer does not yet hold a
// complete block; callers should wait for more data rather than treat
// it as malformed.
var ErrIncompleteFrame = errors.New("netio: incomplete frame")

// decodeBlock parses as many whole `<len>\n<bytes>\n` records as are
// present in buf, stopping at the first bare `\n` (the block
// terminator). It returns the records found, the number of bytes of
// buf consumed, and ErrIncompleteFrame if buf ends mid-record or
// without a terminator yet.
func decodeBlock(buf []byte) (records [][]byte, consumed int, err error) {
	pos := 0
	for {
		if pos >= len(buf) {
			return nil, 0, ErrIncompleteFrame
		}
		nl := indexByte(buf[pos:], '\n')
		if nl < 0 {
			return nil, 0, ErrIncompleteFrame
		}
		lenLine := trimCR(buf[pos : pos+nl])
		pos += nl + 1
		if len(lenLine) == 0 {
			// bare newline: end of block.
			return records, pos, nil
		}
		n, convErr := strconv.Atoi(string(lenLine))
		if convErr != nil || n < 0 {
			return nil, 0, errors.Errorf("netio: malformed length field %q", lenLine)
		}
		if n > MaxFrameSize {
			return nil, 0, ErrFrameTooLarge
		}
		if pos+n+1 > len(buf) {
			return nil, 0, ErrIncompleteFrame
		}
		rec := buf[pos : pos+n]
		pos += n
		if pos >= len(buf) || buf[pos] != '\n' {
			// tolerate a trailing \r before \n
			if pos < len(buf) && buf[pos] == '\r' && pos+1 < len(buf) && buf[pos+1] == '\n' {
				pos += 2
			} else {
				return nil, 0, ErrIncompleteFrame
			}
		} else {
			pos++
		}
		records = append(records, rec)
	}
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

// encodeBlock renders records as one SSDB block terminated by a bare
// newline.
func encodeBlock(records [][]byte) []byte {
	var buf []byte
	for _, r := range records {
		buf = append(buf, strconv.Itoa(len(r))...)
		buf = append(buf, '\n')
		buf = append(buf, r...)
		buf = append(buf, '\n')
	}
	buf = append(buf, '\n')
	return buf
}

// writeBlock writes records as one block directly to w, avoiding an
// intermediate allocation for large responses (e.g. dump streams).
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
	return errors.Trace(w.WriteByte('\n'))
}
