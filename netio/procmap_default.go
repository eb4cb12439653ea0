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
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/store"
)

// NewDefaultProcMap assembles the ProcMap a standalone kvserver process
// registers at startup: builtins, every typed store command, and dump.
// sync140 is deliberately left out here since it needs a SyncHandler
// that only exists once the replication package has been constructed;
// callers wire it in with RegisterSyncCommand afterwards.
func NewDefaultProcMap(st *store.Store, eng engine.Engine, password string) *ProcMap {
	procs := NewProcMap()
	RegisterBuiltins(procs, password)
	RegisterStoreCommands(procs, st)
	RegisterDumpCommand(procs, eng)
	return procs
}
