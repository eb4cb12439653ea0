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

// ProcFlag marks how a command must be scheduled (spec.md §4.5).
type ProcFlag uint8

// ProcFlag bits.
const (
	FlagRead ProcFlag = 1 << iota
	FlagWrite
	FlagBackend
	FlagThread
	// FlagRangeGated marks a command whose first argument is a key
	// subject to cluster range-gating (spec.md §6.1's out_of_range
	// status, §9's ignore_key_range): dispatch checks it against the
	// Server's RangeOwner before running the handler. Builtins, dump
	// and sync140 never carry this flag — they either take no routable
	// key or must work regardless of local ownership.
	FlagRangeGated
)

// Handler implements one command. It runs either inline (on the
// dispatching goroutine) or on a worker pool goroutine, depending on
// its registered flags.
type Handler func(l *Link, req *Request) *Response

// Proc is one ProcMap entry.
type Proc struct {
	Handler Handler
	Flags   ProcFlag
}

// ProcMap looks commands up by exact name. Lookup is case-sensitive,
// and dispatch does not fold the incoming command name, so only the
// registered (lowercase) spelling matches.
type ProcMap struct {
	procs map[string]Proc
}

// NewProcMap returns an empty ProcMap.
func NewProcMap() *ProcMap {
	return &ProcMap{procs: make(map[string]Proc)}
}

// Register binds name to a handler and its scheduling flags.
func (m *ProcMap) Register(name string, flags ProcFlag, h Handler) {
	m.procs[name] = Proc{Handler: h, Flags: flags}
}

// Lookup returns the Proc registered for name, if any.
func (m *ProcMap) Lookup(name string) (Proc, bool) {
	p, ok := m.procs[name]
	return p, ok
}
