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
	"runtime"

	"github.com/ekjotsingh/kvserver/util/printer"
)

// RegisterBuiltins wires spec.md §4.5's always-present commands: ping,
// info, auth.
func RegisterBuiltins(procs *ProcMap, password string) {
	procs.Register("ping", FlagRead, func(_ *Link, _ *Request) *Response {
		return OK([]byte("pong"))
	})

	procs.Register("info", FlagRead, func(_ *Link, _ *Request) *Response {
		data := [][]byte{
			[]byte("version"),
			[]byte(printer.Version),
			[]byte("go_version"),
			[]byte(runtime.Version()),
		}
		return OK(data...)
	})

	procs.Register("auth", FlagRead, func(l *Link, req *Request) *Response {
		if password == "" {
			return Err(StatusClientError, "no password configured")
		}
		if len(req.Args) != 1 {
			return Err(StatusClientError, "auth requires exactly one argument")
		}
		if string(req.Args[0]) != password {
			return Err(StatusError, "invalid password")
		}
		l.Authed = true
		return OK()
	})

	// _mig_ignore_range is the internal handshake a cluster-migration
	// peer sends once authed, mirroring the original's peer-to-peer
	// migration protocol (spec.md §9, Open Question decision #3): it
	// flips IgnoreKeyRange on this Link only, so every subsequent
	// FlagRangeGated command on the same connection bypasses ownership
	// checks regardless of which range the local node currently serves.
	procs.Register("_mig_ignore_range", FlagRead, func(l *Link, _ *Request) *Response {
		l.IgnoreKeyRange = true
		return OK()
	})
}
