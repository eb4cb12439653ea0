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

// SyncHandler takes over a Link's connection for the lifetime of a
// replication session (spec.md's sync140 command). The replication
// package cannot be imported here — BackendSync needs a *Link to write
// binlog frames to, so the dependency has to run netio -> nothing and
// replication -> netio, never the reverse. A handler reaches a Server
// through RegisterSyncCommand, which installs it in the ProcMap as the
// sync140 command.
//
// A SyncHandler owns the Link until it returns: it reads the client's
// starting (seq, key), then writes frames directly via Link.WriteRecords
// for as long as the replica stays connected. Returning ends the
// session; the caller closes the link.
type SyncHandler func(l *Link, req *Request)

// RegisterSyncCommand installs sync140. Deliberately NOT FlagThread:
// a worker-pool handoff would leave serveLink's own goroutine looping
// on ReadRequest concurrently with the handler's reads/writes on the
// same Link, racing on the shared bufio.Writer and inbuf. Running
// inline keeps the whole replication session on serveLink's goroutine;
// once handler returns, the loop's next ReadRequest sees the closed
// (or otherwise finished) connection and exits the normal way.
func RegisterSyncCommand(procs *ProcMap, handler SyncHandler) {
	procs.Register("sync140", FlagRead, func(l *Link, req *Request) *Response {
		handler(l, req)
		return nil
	})
}
