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

// Package statusserver is the small HTTP side-channel every node
// exposes alongside its TCP data port: /metrics, /debug/pprof/*, and a
// /status JSON summary — adapted from the teacher's
// server/http_status.go, trimmed to the handlers this system actually
// has a use for (no SQL schema/region/mvcc endpoints, since none of
// that exists here).
package statusserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/ekjotsingh/kvserver/util/printer"
	"github.com/gorilla/mux"
	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LinkCounter is the narrow capability statusserver needs from
// netio.Server, kept as a structural interface so this package never
// imports netio.
type LinkCounter interface {
	LinkCount() int
}

// Server is the HTTP status endpoint.
type Server struct {
	Addr      string
	Links     LinkCounter
	Registry  *prometheus.Registry
	StartedAt time.Time

	srv *http.Server
}

// New builds a Server listening on addr. reg must already have every
// collector from the metrics package registered on it.
func New(addr string, links LinkCounter, reg *prometheus.Registry) *Server {
	return &Server{Addr: addr, Links: links, Registry: reg, StartedAt: time.Now()}
}

// ListenAndServe blocks serving HTTP on s.Addr until the listener
// fails or Close is called.
func (s *Server) ListenAndServe() error {
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Name("Status")
	router.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})).Name("Metrics")

	router.HandleFunc("/debug/pprof/", pprof.Index)
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)

	s.srv = &http.Server{Addr: s.Addr, Handler: router}
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Trace(err)
}

// Close shuts the HTTP server down.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	return errors.Trace(s.srv.Close())
}

type statusBody struct {
	printer.Info
	UptimeSeconds float64 `json:"uptime_seconds"`
	Connections   int     `json:"connections"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := statusBody{
		Info:          printer.Snapshot(),
		UptimeSeconds: time.Since(s.StartedAt).Seconds(),
	}
	if s.Links != nil {
		body.Connections = s.Links.LinkCount()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		serveError(w, http.StatusInternalServerError, err.Error())
	}
}

func serveError(w http.ResponseWriter, status int, txt string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, txt)
}
