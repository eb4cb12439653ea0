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

	"github.com/ekjotsingh/kvserver/dump"
	"github.com/ekjotsingh/kvserver/engine"
)

// RegisterDumpCommand wires spec.md §6.3's `dump` command: a bulk KV
// scan streamed directly down the requesting link as a sequence of
// SSDB blocks, framed and flushed by dump.Stream via the link itself
// (Link satisfies dump.FrameSink through WriteRecords without dump
// ever importing netio). It runs on the reader pool since a full dump
// can hold a link open far longer than an ordinary read.
func RegisterDumpCommand(procs *ProcMap, eng engine.Engine) {
	procs.Register("dump", FlagRead|FlagThread, func(l *Link, req *Request) *Response {
		opts := dump.Options{Start: []byte(dump.DefaultStart), Limit: dump.DefaultLimit}
		if len(req.Args) > 0 {
			opts.Start = req.Args[0]
		}
		if len(req.Args) > 1 {
			opts.End = req.Args[1]
		}
		if len(req.Args) > 2 {
			if n, err := strconv.Atoi(string(req.Args[2])); err == nil {
				opts.Limit = n
			}
		}
		if len(req.Args) > 3 && string(req.Args[3]) == "snappy" {
			opts.Compress = true
		}
		if _, err := dump.Stream(eng, opts, l); err != nil {
			return Err(StatusError, err.Error())
		}
		return nil
	})
}
