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

package statusserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeLinkCounter struct{ n int }

func (f fakeLinkCounter) LinkCount() int { return f.n }

func TestHandleStatusReportsConnectionCount(t *testing.T) {
	s := New("127.0.0.1:0", fakeLinkCounter{n: 3}, prometheus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body statusBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Connections != 3 {
		t.Fatalf("Connections = %d, want 3", body.Connections)
	}
	if body.UptimeSeconds < 0 {
		t.Fatalf("UptimeSeconds = %v, want >= 0", body.UptimeSeconds)
	}
}

func TestHandleStatusWithNilLinksReportsZero(t *testing.T) {
	s := New("127.0.0.1:0", nil, prometheus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	var body statusBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Connections != 0 {
		t.Fatalf("Connections = %d, want 0", body.Connections)
	}
}

func TestCloseWithoutListenIsNoop(t *testing.T) {
	s := New("127.0.0.1:0", nil, prometheus.NewRegistry())
	if err := s.Close(); err != nil {
		t.Fatalf("Close on an unstarted server returned %v, want nil", err)
	}
}
