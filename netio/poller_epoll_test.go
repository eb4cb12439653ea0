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

//go:build linux

package netio

import (
	"os"
	"testing"
	"time"
)

func TestEpollPollerReportsReadReadiness(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	p, err := NewEpollPoller()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	fd := int(r.Fd())
	if err := p.Register(fd, EventIn); err != nil {
		t.Fatal(err)
	}

	ready, err := p.Wait(10 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 0 {
		t.Fatalf("expected no readiness before any write, got %v", ready)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	ready, err = p.Wait(500 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 1 || ready[0].FD != fd || ready[0].Events&EventIn == 0 {
		t.Fatalf("expected fd %d ready for IN, got %v", fd, ready)
	}

	if err := p.Deregister(fd); err != nil {
		t.Fatal(err)
	}
}
