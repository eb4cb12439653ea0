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
	"strconv"

	"github.com/pingcap/errors"
)

// decodeRESP parses one RESP array ("*N\r\n$len\r\nbytes\r\n..." ) from
// buf into a Request, the thin adapter SUPPLEMENTED FEATURES calls for:
// RESP is translated into the same Request shape the SSDB framer
// produces, not handled as a parallel connection type.
func decodeRESP(buf []byte) (req *Request, consumed int, err error) {
	if len(buf) == 0 || buf[0] != '*' {
		return nil, 0, errors.New("netio: not a RESP array")
	}
	pos := 1
	n, nl, err := readRESPInt(buf[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += nl
	if n < 0 {
		return nil, 0, errors.New("netio: negative RESP array length")
	}
	parts := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if pos >= len(buf) || buf[pos] != '$' {
			return nil, 0, ErrIncompleteFrame
		}
		pos++
		ln, consumed2, err := readRESPInt(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += consumed2
		if ln > MaxFrameSize {
			return nil, 0, ErrFrameTooLarge
		}
		if pos+ln+2 > len(buf) {
			return nil, 0, ErrIncompleteFrame
		}
		parts = append(parts, buf[pos:pos+ln])
		pos += ln + 2 // skip trailing \r\n
	}
	if len(parts) == 0 {
		return nil, 0, errors.New("netio: empty RESP command")
	}
	return &Request{Cmd: string(parts[0]), Args: parts[1:]}, pos, nil
}

// readRESPInt reads a `<decimal>\r\n` integer field, returning the
// value and the number of bytes (including the trailing CRLF) it
// consumed from buf.
func readRESPInt(buf []byte) (value, consumed int, err error) {
	nl := indexByte(buf, '\n')
	if nl < 0 {
		return 0, 0, ErrIncompleteFrame
	}
	line := trimCR(buf[:nl])
	v, convErr := strconv.Atoi(string(line))
	if convErr != nil {
		return 0, 0, errors.Errorf("netio: malformed RESP integer %q", line)
	}
	return v, nl + 1, nil
}

// encodeRESP renders resp as a RESP array reply: a bulk string per
// data record (or a simple error for non-OK statuses), the mirror
// image of decodeRESP.
func encodeRESP(resp *Response) []byte {
	if resp.Status != StatusOK {
		msg := resp.Status
		if len(resp.Data) > 0 {
			msg = Status(resp.Data[0])
		}
		return []byte("-" + string(msg) + "\r\n")
	}
	var out []byte
	out = append(out, '*')
	out = append(out, strconv.Itoa(len(resp.Data))...)
	out = append(out, '\r', '\n')
	for _, d := range resp.Data {
		out = append(out, '$')
		out = append(out, strconv.Itoa(len(d))...)
		out = append(out, '\r', '\n')
		out = append(out, d...)
		out = append(out, '\r', '\n')
	}
	return out
}
