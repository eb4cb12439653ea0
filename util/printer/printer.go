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

// Package printer prints build/version metadata at startup and
// exposes it to the status server, adapted from the teacher's
// util/printer convention (referenced by server/http_status.go there).
package printer

import (
	"fmt"
	"runtime"

	"github.com/ekjotsingh/kvserver/util/logutil"
	"go.uber.org/zap"
)

// Build metadata. GitHash/BuildTime are populated via -ldflags
// (-X github.com/ekjotsingh/kvserver/util/printer.GitHash=...) the way
// the teacher's own printer package is populated by its Makefile;
// left as "unknown" for a plain `go build`.
var (
	Version   = "0.1.0"
	GitHash   = "unknown"
	BuildTime = "unknown"
)

// Info is the snapshot served on /status.
type Info struct {
	Version   string `json:"version"`
	GitHash   string `json:"git_hash"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Snapshot returns the current build metadata.
func Snapshot() Info {
	return Info{Version: Version, GitHash: GitHash, BuildTime: BuildTime, GoVersion: runtime.Version()}
}

// PrintBanner logs the build metadata once at startup, the way the
// teacher's entrypoints announce their version before serving traffic.
func PrintBanner() {
	logutil.BgLogger().Info("kvserver starting",
		zap.String("version", Version),
		zap.String("git_hash", GitHash),
		zap.String("build_time", BuildTime),
		zap.String("go_version", runtime.Version()),
	)
	fmt.Printf("kvserver %s (%s, built %s, %s)\n", Version, GitHash, BuildTime, runtime.Version())
}
