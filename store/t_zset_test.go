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

package store

import (
	"github.com/ekjotsingh/kvserver/binlog"
	. "github.com/pingcap/check"
)

var _ = Suite(&testZSetSuite{})

type testZSetSuite struct{}

func (s *testZSetSuite) TestZSetInsertUpdateUnchanged(c *C) {
	st := newTestStore(c)

	res, err := st.ZSet(binlog.SYNC, []byte("z"), []byte("a"), 10)
	c.Assert(err, IsNil)
	c.Assert(res, Equals, ZSetInserted)

	res, err = st.ZSet(binlog.SYNC, []byte("z"), []byte("a"), 10)
	c.Assert(err, IsNil)
	c.Assert(res, Equals, ZSetUnchanged)

	score, ok, err := st.ZGet([]byte("z"), []byte("a"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)
	c.Assert(score, Equals, int64(10))
}

func (s *testZSetSuite) TestZIncrAndZDel(c *C) {
	st := newTestStore(c)

	next, err := st.ZIncr(binlog.SYNC, []byte("z"), []byte("a"), 5)
	c.Assert(err, IsNil)
	c.Assert(next, Equals, int64(5))

	next, err = st.ZIncr(binlog.SYNC, []byte("z"), []byte("a"), -2)
	c.Assert(err, IsNil)
	c.Assert(next, Equals, int64(3))

	c.Assert(st.ZDel(binlog.SYNC, []byte("z"), []byte("a")), IsNil)
	_, ok, err := st.ZGet([]byte("z"), []byte("a"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsFalse)
}

func (s *testZSetSuite) TestZRangeOrdersByScore(c *C) {
	st := newTestStore(c)
	entries := map[string]int64{"a": 30, "b": 10, "c": 20}
	for k, sc := range entries {
		_, err := st.ZSet(binlog.SYNC, []byte("z"), []byte(k), sc)
		c.Assert(err, IsNil)
	}

	n, err := st.ZSize([]byte("z"))
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(3))

	out, err := st.ZRange([]byte("z"), 0, -1)
	c.Assert(err, IsNil)
	c.Assert(out, HasLen, 3)
	c.Assert(string(out[0].Key), Equals, "b")
	c.Assert(string(out[1].Key), Equals, "c")
	c.Assert(string(out[2].Key), Equals, "a")

	rank, err := st.ZRank([]byte("z"), []byte("c"))
	c.Assert(err, IsNil)
	c.Assert(rank, Equals, int64(1))
}

func (s *testZSetSuite) TestZRangeByScore(c *C) {
	st := newTestStore(c)
	for k, sc := range map[string]int64{"a": 5, "b": 15, "c": 25} {
		_, err := st.ZSet(binlog.SYNC, []byte("z"), []byte(k), sc)
		c.Assert(err, IsNil)
	}

	out, err := st.ZRangeByScore([]byte("z"), 10, 20, -1)
	c.Assert(err, IsNil)
	c.Assert(out, HasLen, 1)
	c.Assert(string(out[0].Key), Equals, "b")
}
