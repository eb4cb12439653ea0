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

// Package config decodes the server's TOML conf file. Parsing a
// hand-rolled grammar is explicitly out of scope; this is a thin
// BurntSushi/toml struct decode plus defaulting.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

// ReplicaOf describes one upstream this server replicates from.
type ReplicaOf struct {
	ID     string `toml:"id"`
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	Type   string `toml:"type"` // "sync" or "mirror"
	Auth   string `toml:"auth"`
}

// Config is the full set of knobs read from the conf file.
type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	DataDir string `toml:"data_dir"`
	MetaDir string `toml:"meta_dir"`

	WorkerReaderThreads int `toml:"reader_threads"`
	WorkerWriterThreads int `toml:"writer_threads"`

	Auth string `toml:"auth"`

	SyncSpeedMiBps float64     `toml:"sync_speed_mb"`
	Replicas       []ReplicaOf `toml:"replicaof"`

	ClusterNodeID   uint32 `toml:"cluster_node_id"`
	ClusterSeedHost string `toml:"cluster_seed_host"`
	ClusterSeedPort int    `toml:"cluster_seed_port"`

	StatusHost string `toml:"status_host"`
	StatusPort int    `toml:"status_port"`

	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file"`
	LogFormat string `toml:"log_format"`

	DumpSnappy bool `toml:"dump_snappy"`
}

// Default returns the built-in defaults applied before the conf file is
// overlaid on top.
func Default() *Config {
	return &Config{
		Host:                "127.0.0.1",
		Port:                8888,
		DataDir:             "./var/data",
		MetaDir:             "./var/meta",
		WorkerReaderThreads: 4,
		WorkerWriterThreads: 1,
		SyncSpeedMiBps:      0, // 0 == unthrottled
		StatusHost:          "127.0.0.1",
		StatusPort:          10090,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Load decodes path into a Config seeded with Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Trace(err)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	for _, r := range c.Replicas {
		if r.Type != "sync" && r.Type != "mirror" {
			return errors.Errorf("replicaof %s: type must be sync or mirror, got %q", r.ID, r.Type)
		}
	}
	return nil
}
