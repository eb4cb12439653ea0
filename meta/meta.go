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

// Package meta is the second, independent embedded store spec.md §6.4
// calls for: replica checkpoints and cluster node entries, kept apart
// from the data/binlog engine so replaying the binlog never perturbs
// this bookkeeping and vice versa. It is backed by go.etcd.io/bbolt,
// a pure-Go ordered KV store well suited to a small number of
// infrequently-written, never-range-scanned records.
package meta

import (
	"encoding/binary"
	"encoding/json"

	"github.com/pingcap/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSlaveStatus = []byte("slave_status")
	bucketClusterNode = []byte("cluster_node")

	legacySlaveStatusPrefix = "new.slave.status."
)

// SlaveStatus is the checkpoint a Slave persists after applying each
// record, per spec.md §4.4 step 5.
type SlaveStatus struct {
	LastSeq uint64 `json:"last_seq"`
	LastKey []byte `json:"last_key,omitempty"`
}

// Store opens the meta database and owns its bucket lifecycle.
type Store struct {
	db *bolt.DB
}

// Open creates (if absent) and opens the bbolt file at path, ensuring
// both buckets exist, then migrates any legacy `new.slave.status.<id>`
// entries into the current `slave.status.<id>` naming and deletes the
// legacy key, matching spec.md §6.4's startup migration note.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	s := &Store{db: db}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSlaveStatus); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketClusterNode); err != nil {
			return err
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, errors.Trace(err)
	}
	if err := s.migrateLegacyStatuses(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error {
	return errors.Trace(s.db.Close())
}

func (s *Store) migrateLegacyStatuses() error {
	var toMigrate map[string]SlaveStatus
	if err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSlaveStatus)
		return b.ForEach(func(k, v []byte) error {
			key := string(k)
			if len(key) <= len(legacySlaveStatusPrefix) || key[:len(legacySlaveStatusPrefix)] != legacySlaveStatusPrefix {
				return nil
			}
			var st SlaveStatus
			if err := json.Unmarshal(v, &st); err != nil {
				return errors.Trace(err)
			}
			if toMigrate == nil {
				toMigrate = make(map[string]SlaveStatus)
			}
			toMigrate[key[len(legacySlaveStatusPrefix):]] = st
			return nil
		})
	}); err != nil {
		return errors.Trace(err)
	}
	if len(toMigrate) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSlaveStatus)
		for id, st := range toMigrate {
			buf, err := json.Marshal(st)
			if err != nil {
				return errors.Trace(err)
			}
			if err := b.Put([]byte(slaveStatusKey(id)), buf); err != nil {
				return errors.Trace(err)
			}
			if err := b.Delete([]byte(legacySlaveStatusPrefix + id)); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	})
}

func slaveStatusKey(id string) string {
	return "slave.status." + id
}

// LoadSlaveStatus returns the persisted checkpoint for replica id, or
// the zero value if none has been recorded yet.
func (s *Store) LoadSlaveStatus(id string) (SlaveStatus, error) {
	var st SlaveStatus
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSlaveStatus).Get([]byte(slaveStatusKey(id)))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &st)
	})
	return st, errors.Trace(err)
}

// SaveSlaveStatus persists the checkpoint for replica id.
func (s *Store) SaveSlaveStatus(id string, st SlaveStatus) error {
	buf, err := json.Marshal(st)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSlaveStatus).Put([]byte(slaveStatusKey(id)), buf)
	}))
}

// NodeRecord is the persisted form of cluster.Node (spec.md §3.3);
// cluster.NodeTable owns the in-memory representation and uses Store
// only to survive a restart.
type NodeRecord struct {
	ID     uint32 `json:"id"`
	IP     string `json:"ip"`
	Port   uint16 `json:"port"`
	Status string `json:"status"`
	Begin  string `json:"range_begin"`
	End    string `json:"range_end"`
}

func nodeKey(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}

// SaveNode upserts one cluster node entry.
func (s *Store) SaveNode(n NodeRecord) error {
	buf, err := json.Marshal(n)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketClusterNode).Put(nodeKey(n.ID), buf)
	}))
}

// DeleteNode removes a cluster node entry.
func (s *Store) DeleteNode(id uint32) error {
	return errors.Trace(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketClusterNode).Delete(nodeKey(id))
	}))
}

// LoadNodes returns every persisted cluster node entry, used to
// rebuild cluster.NodeTable on startup.
func (s *Store) LoadNodes() ([]NodeRecord, error) {
	var out []NodeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketClusterNode).ForEach(func(_, v []byte) error {
			var n NodeRecord
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			out = append(out, n)
			return nil
		})
	})
	return out, errors.Trace(err)
}
