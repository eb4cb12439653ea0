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

// Command kvserver is the standalone server process: it wires config,
// the data/binlog engine, the meta store, the typed command set,
// replication, the cluster layer and the status endpoint together and
// serves traffic until a termination signal arrives (spec.md §6.5).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/cluster"
	"github.com/ekjotsingh/kvserver/config"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/meta"
	"github.com/ekjotsingh/kvserver/metrics"
	"github.com/ekjotsingh/kvserver/netio"
	"github.com/ekjotsingh/kvserver/replication"
	"github.com/ekjotsingh/kvserver/statusserver"
	"github.com/ekjotsingh/kvserver/store"
	"github.com/ekjotsingh/kvserver/util/logutil"
	"github.com/ekjotsingh/kvserver/util/printer"
	"github.com/pingcap/errors"
	zaplog "github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run implements the `<cmd> [-d] <conf_file> [-s start|stop|restart]`
// grammar of spec.md §6.5 and returns the process's exit code: 0 on a
// clean shutdown, 1 on a configuration error or a duplicate instance.
// Pid-file based stop/restart is explicitly out of scope (spec.md §1's
// "process lifecycle... beyond what os gives us"); -s is still parsed
// so the CLI grammar matches, but only "start" is implemented — a
// caller wanting stop/restart manages the process externally (signals,
// systemd, supervisor).
func run() int {
	daemon, confPath, mode, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return 1
	}
	if mode != "start" {
		fmt.Fprintf(os.Stderr, "kvserver: -s %s is not supported; pid-file based process control "+
			"is out of scope, run under a process supervisor instead\n", mode)
		return 1
	}

	cfg, err := config.Load(confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvserver: config error:", err)
		return 1
	}

	logFormat := cfg.LogFormat
	if daemon {
		// -d: foreground/debug mode logs plain text to stderr instead
		// of whatever file/format the conf file names.
		logFormat = "text"
	}
	logFile := cfg.LogFile
	if daemon {
		logFile = ""
	}
	if err := logutil.InitLogger(logutil.NewLogConfig(cfg.LogLevel, logFormat, logFile, zaplog.FileLogConfig{}, false)); err != nil {
		fmt.Fprintln(os.Stderr, "kvserver: logger init failed:", err)
		return 1
	}
	printer.PrintBanner()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logutil.BgLogger().Error("kvserver: create data dir failed", zap.Error(err))
		return 1
	}
	if err := os.MkdirAll(cfg.MetaDir, 0755); err != nil {
		logutil.BgLogger().Error("kvserver: create meta dir failed", zap.Error(err))
		return 1
	}

	eng, err := engine.OpenLevelDB(cfg.DataDir)
	if err != nil {
		// goleveldb takes an exclusive file lock on DataDir; a second
		// instance pointed at the same data_dir fails here, giving us
		// spec.md §6.5's "duplicate instance" exit code for free.
		logutil.BgLogger().Error("kvserver: open engine failed (duplicate instance?)", zap.Error(err))
		return 1
	}
	defer eng.Close()

	capacity := uint64(binlog.DefaultCapacityRelease)
	log, err := binlog.Open(eng, capacity)
	if err != nil {
		logutil.BgLogger().Error("kvserver: open binlog failed", zap.Error(err))
		return 1
	}

	metaStore, err := meta.Open(filepath.Join(cfg.MetaDir, "meta.db"))
	if err != nil {
		logutil.BgLogger().Error("kvserver: open meta store failed", zap.Error(err))
		return 1
	}
	defer metaStore.Close()

	st := store.New(eng, log)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	procs := netio.NewDefaultProcMap(st, eng, cfg.Auth)

	master := replication.NewMaster(eng, log, int(cfg.SyncSpeedMiBps))
	netio.RegisterSyncCommand(procs, master.Serve)

	srv := netio.NewServer(procs, cfg.Auth, cfg.WorkerReaderThreads, cfg.WorkerWriterThreads)

	if cfg.ClusterNodeID != 0 {
		table, owner := bootstrapCluster(cfg, metaStore)
		srv.RangeOwner = func(key []byte) bool {
			n, ok := table.Owner(string(key))
			return ok && n.ID == owner
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	for i := range cfg.Replicas {
		r := cfg.Replicas[i]
		slave := &replication.Slave{
			ID:       r.ID,
			Addr:     net.JoinHostPort(r.Host, strconv.Itoa(r.Port)),
			Eng:      eng,
			Log:      log,
			Meta:     metaStore,
			IsMirror: r.Type == "mirror",
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			slave.Run(ctx)
		}()
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		logutil.BgLogger().Error("kvserver: listen failed", zap.Error(err))
		return 1
	}

	status := statusserver.New(net.JoinHostPort(cfg.StatusHost, strconv.Itoa(cfg.StatusPort)), srv, registry)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := status.ListenAndServe(); err != nil {
			logutil.BgLogger().Warn("kvserver: status server stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	// SIGALRM would have driven the original's status tick; this
	// server derives tick cadence from elapsed wall time instead (see
	// DESIGN.md's Open Question decisions), so it is not handled here.
	// SIGPIPE is ignored by not registering for it: a write to a
	// half-closed socket surfaces as an ordinary write error instead of
	// killing the process.
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx, ln); err != nil {
			logutil.BgLogger().Error("kvserver: serve failed", zap.Error(err))
		}
	}()

	logutil.BgLogger().Info("kvserver: ready",
		zap.String("addr", ln.Addr().String()),
		zap.String("status_addr", status.Addr))

	<-sigCh
	logutil.BgLogger().Info("kvserver: shutting down")
	cancel()
	srv.Close()
	status.Close()
	wg.Wait()
	return 0
}

// bootstrapCluster loads persisted node records into a NodeTable,
// registering the local node (spanning the whole keyspace, SERVING)
// the first time this node id starts with no cluster state yet.
func bootstrapCluster(cfg *config.Config, metaStore *meta.Store) (*cluster.NodeTable, uint32) {
	table := cluster.NewNodeTable()
	records, err := metaStore.LoadNodes()
	if err != nil {
		logutil.BgLogger().Warn("kvserver: load cluster nodes failed, starting with an empty table", zap.Error(err))
		records = nil
	}
	localID := cfg.ClusterNodeID
	haveLocal := false
	for _, r := range records {
		n := cluster.Node{
			ID:     r.ID,
			IP:     r.IP,
			Port:   r.Port,
			Status: cluster.Status(r.Status),
			Range:  cluster.KeyRange{Begin: r.Begin, End: r.End},
		}
		if err := table.AddKVNode(n); err != nil {
			logutil.BgLogger().Warn("kvserver: skipping invalid persisted node", zap.Uint32("id", r.ID), zap.Error(err))
			continue
		}
		if r.ID == localID {
			haveLocal = true
		}
	}
	if !haveLocal {
		n := cluster.Node{
			ID:     localID,
			IP:     cfg.Host,
			Port:   uint16(cfg.Port),
			Status: cluster.StatusServing,
			Range:  cluster.KeyRange{Begin: "", End: ""},
		}
		if err := table.AddKVNode(n); err != nil {
			logutil.BgLogger().Error("kvserver: bootstrap node registration failed", zap.Error(err))
		} else if err := metaStore.SaveNode(meta.NodeRecord{
			ID:     n.ID,
			IP:     n.IP,
			Port:   n.Port,
			Status: string(n.Status),
			Begin:  n.Range.Begin,
			End:    n.Range.End,
		}); err != nil {
			logutil.BgLogger().Error("kvserver: persisting bootstrap node failed", zap.Error(err))
		}
	}
	metrics.ClusterNodesServing.Set(float64(countServing(table)))
	return table, localID
}

func countServing(table *cluster.NodeTable) int {
	n := 0
	for _, node := range table.Nodes() {
		if node.Status == cluster.StatusServing {
			n++
		}
	}
	return n
}

func parseArgs(args []string) (daemon bool, confPath, mode string, err error) {
	mode = "start"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-d":
			daemon = true
		case "-s":
			i++
			if i >= len(args) {
				return false, "", "", errors.New("kvserver: -s requires an argument (start|stop|restart)")
			}
			mode = args[i]
			if mode != "start" && mode != "stop" && mode != "restart" {
				return false, "", "", errors.Errorf("kvserver: invalid -s value %q", mode)
			}
		default:
			if confPath != "" {
				return false, "", "", errors.Errorf("kvserver: unexpected argument %q", args[i])
			}
			confPath = args[i]
		}
	}
	if confPath == "" {
		return false, "", "", errors.New("kvserver: missing conf_file")
	}
	return daemon, confPath, mode, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: kvserver [-d] <conf_file> [-s start|stop|restart]")
}
