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

// Package metrics declares every Prometheus collector this server
// exports, registered once at process startup and served by
// statusserver at /metrics, the way the teacher's server package
// registers its own collectors ahead of prometheus.Handler().
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Connection and command counters.
var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kvserver",
		Name:      "connections_total",
		Help:      "Total TCP connections accepted.",
	})

	ConnectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvserver",
		Name:      "connections_open",
		Help:      "Currently open TCP connections.",
	})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kvserver",
		Name:      "commands_total",
		Help:      "Commands processed, by command name and status.",
	}, []string{"command", "status"})

	CommandDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kvserver",
		Name:      "command_duration_seconds",
		Help:      "Command handling latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"command"})
)

// Binlog and replication gauges.
var (
	BinlogLastSeq = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvserver",
		Name:      "binlog_last_seq",
		Help:      "Highest committed binlog sequence number.",
	})

	BinlogMinSeq = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvserver",
		Name:      "binlog_min_seq",
		Help:      "Lowest binlog sequence number still retained.",
	})

	ReplicationLagSeqs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kvserver",
		Name:      "replication_lag_seqs",
		Help:      "binlog_last_seq minus each connected replica's acknowledged sequence.",
	}, []string{"replica"})

	ReplicationSessionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvserver",
		Name:      "replication_sessions_open",
		Help:      "Currently connected replication sessions (sync140).",
	})
)

// Cluster gauges.
var (
	ClusterNodesServing = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvserver",
		Name:      "cluster_nodes_serving",
		Help:      "Cluster nodes currently in SERVING status.",
	})
)

// Register adds every collector in this package to reg. Called once at
// startup, mirroring prometheus.MustRegister calls scattered through
// the teacher's server package init paths, collected here into one
// function so cmd/kvserver has a single call site.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ConnectionsTotal,
		ConnectionsOpen,
		CommandsTotal,
		CommandDurationSeconds,
		BinlogLastSeq,
		BinlogMinSeq,
		ReplicationLagSeqs,
		ReplicationSessionsOpen,
		ClusterNodesServing,
	)
}
