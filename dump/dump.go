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

// Package dump implements the bulk dump facility of spec.md §6.3: a
// forward scan over the plain KV band via store.NewKVIterator, framed
// as begin/set/end records. Hash, zset and queue entries are not
// included in a dump. It depends only on engine+store,
// never on netio, so netio can depend on dump without a cycle; a
// caller supplies a FrameSink (implemented structurally by
// netio.Link) to receive the framed records.
package dump

import (
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/store"
	"github.com/golang/snappy"
	"github.com/pingcap/errors"
)

// DefaultStart is spec.md §6.3's default dump start key.
const DefaultStart = "A"

// DefaultLimit is spec.md §6.3's default dump limit.
const DefaultLimit = 10

// FrameSink receives one SSDB block (a slice of already-length-prefix-
// ready records) per call. netio.Link satisfies this by writing the
// block straight to its output buffer.
type FrameSink interface {
	WriteRecords(records [][]byte) error
}

// Options configures one dump request.
type Options struct {
	Start     []byte
	End       []byte
	Limit     int
	Compress  bool // gate snappy-compress value frames above CompressThreshold
	CompressThreshold int
}

const defaultCompressThreshold = 4096

// Stream runs one dump of the plain KV band (user keys in
// [Start, End), at most Limit of them) to sink, writing `begin`, one
// `set <key> <value>` per live entry, then `end <count>`. Hash, zset
// and queue entries are not dumped.
func Stream(eng engine.Engine, opts Options, sink FrameSink) (int64, error) {
	start := opts.Start
	if len(start) == 0 {
		start = []byte(DefaultStart)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	threshold := opts.CompressThreshold
	if threshold <= 0 {
		threshold = defaultCompressThreshold
	}

	if err := sink.WriteRecords([][]byte{[]byte("begin")}); err != nil {
		return 0, errors.Trace(err)
	}

	it := store.NewKVIterator(eng, start, opts.End, limit, false)
	defer it.Close()

	var count int64
	for it.Next() {
		val := it.Value()
		if opts.Compress && len(val) > threshold {
			val = snappy.Encode(nil, val)
			if err := sink.WriteRecords([][]byte{[]byte("set"), it.Key(), []byte("snappy"), val}); err != nil {
				return count, errors.Trace(err)
			}
		} else {
			if err := sink.WriteRecords([][]byte{[]byte("set"), it.Key(), val}); err != nil {
				return count, errors.Trace(err)
			}
		}
		count++
	}
	if err := it.Err(); err != nil {
		return count, err
	}
	if err := sink.WriteRecords([][]byte{[]byte("end"), []byte(itoa(count))}); err != nil {
		return count, errors.Trace(err)
	}
	return count, nil
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := v < 0
	if neg {
		v = -v
	}
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
