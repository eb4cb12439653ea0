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

var _ = Suite(&testHashSuite{})

type testHashSuite struct{}

func (s *testHashSuite) TestHSetReportsInsertVsUpdate(c *C) {
	st := newTestStore(c)

	res, err := st.HSet(binlog.SYNC, []byte("h"), []byte("f"), []byte("1"))
	c.Assert(err, IsNil)
	c.Assert(res, Equals, HSetInserted)

	res, err = st.HSet(binlog.SYNC, []byte("h"), []byte("f"), []byte("2"))
	c.Assert(err, IsNil)
	c.Assert(res, Equals, HSetUpdated)

	val, ok, err := st.HGet([]byte("h"), []byte("f"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)
	c.Assert(string(val), Equals, "2")
}

func (s *testHashSuite) TestHDelAndHSize(c *C) {
	st := newTestStore(c)

	_, err := st.HSet(binlog.SYNC, []byte("h"), []byte("a"), []byte("1"))
	c.Assert(err, IsNil)
	_, err = st.HSet(binlog.SYNC, []byte("h"), []byte("b"), []byte("2"))
	c.Assert(err, IsNil)

	n, err := st.HSize([]byte("h"))
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(2))

	c.Assert(st.HDel(binlog.SYNC, []byte("h"), []byte("a")), IsNil)
	n, err = st.HSize([]byte("h"))
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))

	_, ok, err := st.HGet([]byte("h"), []byte("a"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsFalse)
}

func (s *testHashSuite) TestHIncr(c *C) {
	st := newTestStore(c)

	next, err := st.HIncr(binlog.SYNC, []byte("h"), []byte("n"), 3)
	c.Assert(err, IsNil)
	c.Assert(next, Equals, int64(3))

	next, err = st.HIncr(binlog.SYNC, []byte("h"), []byte("n"), 4)
	c.Assert(err, IsNil)
	c.Assert(next, Equals, int64(7))
}

func (s *testHashSuite) TestHScanOrdersByField(c *C) {
	st := newTestStore(c)
	for _, f := range []string{"c", "a", "b"} {
		_, err := st.HSet(binlog.SYNC, []byte("h"), []byte(f), []byte(f))
		c.Assert(err, IsNil)
	}

	pairs, err := st.HScan([]byte("h"), nil, nil, -1)
	c.Assert(err, IsNil)
	c.Assert(pairs, HasLen, 3)
	c.Assert(string(pairs[0][0]), Equals, "a")
	c.Assert(string(pairs[1][0]), Equals, "b")
	c.Assert(string(pairs[2][0]), Equals, "c")
}
