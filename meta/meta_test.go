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

package meta

import (
	"encoding/json"
	"path/filepath"
	"testing"

	. "github.com/pingcap/check"
	bolt "go.etcd.io/bbolt"
)

func Test(t *testing.T) { TestingT(t) }

var _ = Suite(&testMetaSuite{})

type testMetaSuite struct{}

func (s *testMetaSuite) openStore(c *C) (*Store, string) {
	dir := c.MkDir()
	path := filepath.Join(dir, "meta.db")
	st, err := Open(path)
	c.Assert(err, IsNil)
	return st, path
}

func (s *testMetaSuite) TestSlaveStatusRoundTrip(c *C) {
	st, _ := s.openStore(c)
	defer st.Close()

	got, err := st.LoadSlaveStatus("r1")
	c.Assert(err, IsNil)
	c.Assert(got, DeepEquals, SlaveStatus{})

	want := SlaveStatus{LastSeq: 42, LastKey: []byte("\x01foo")}
	c.Assert(st.SaveSlaveStatus("r1", want), IsNil)

	got, err = st.LoadSlaveStatus("r1")
	c.Assert(err, IsNil)
	c.Assert(got.LastSeq, Equals, want.LastSeq)
	c.Assert(got.LastKey, DeepEquals, want.LastKey)
}

func (s *testMetaSuite) TestLegacyStatusMigration(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "meta.db")

	db, err := bolt.Open(path, 0600, nil)
	c.Assert(err, IsNil)
	buf, err := json.Marshal(SlaveStatus{LastSeq: 7})
	c.Assert(err, IsNil)
	c.Assert(db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSlaveStatus)
		if err != nil {
			return err
		}
		return b.Put([]byte("new.slave.status.r2"), buf)
	}), IsNil)
	c.Assert(db.Close(), IsNil)

	st, err := Open(path)
	c.Assert(err, IsNil)
	defer st.Close()

	got, err := st.LoadSlaveStatus("r2")
	c.Assert(err, IsNil)
	c.Assert(got.LastSeq, Equals, uint64(7))
}

func (s *testMetaSuite) TestNodeRoundTrip(c *C) {
	st, _ := s.openStore(c)
	defer st.Close()

	n := NodeRecord{ID: 1, IP: "10.0.0.1", Port: 8888, Status: "SERVING", Begin: "a", End: "m"}
	c.Assert(st.SaveNode(n), IsNil)

	nodes, err := st.LoadNodes()
	c.Assert(err, IsNil)
	c.Assert(nodes, DeepEquals, []NodeRecord{n})

	c.Assert(st.DeleteNode(n.ID), IsNil)
	nodes, err = st.LoadNodes()
	c.Assert(err, IsNil)
	c.Assert(nodes, HasLen, 0)
}
