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
	"testing"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/engine"
	. "github.com/pingcap/check"
)

func Test(t *testing.T) { TestingT(t) }

func newTestStore(c *C) *Store {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	c.Assert(err, IsNil)
	return New(eng, log)
}

var _ = Suite(&testKVSuite{})

type testKVSuite struct{}

func (s *testKVSuite) TestSetGetDel(c *C) {
	st := newTestStore(c)

	_, ok, err := st.Get([]byte("foo"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsFalse)

	c.Assert(st.Set(binlog.SYNC, []byte("foo"), []byte("bar")), IsNil)
	val, ok, err := st.Get([]byte("foo"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)
	c.Assert(string(val), Equals, "bar")

	rec, err := st.Log.FindLast()
	c.Assert(err, IsNil)
	c.Assert(rec.Cmd, Equals, binlog.CmdKSet)
	c.Assert(rec.Type, Equals, binlog.SYNC)

	c.Assert(st.Del(binlog.SYNC, []byte("foo")), IsNil)
	_, ok, err = st.Get([]byte("foo"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsFalse)

	rec, err = st.Log.FindLast()
	c.Assert(err, IsNil)
	c.Assert(rec.Cmd, Equals, binlog.CmdKDel)
}

func (s *testKVSuite) TestIncrCreatesThenAccumulates(c *C) {
	st := newTestStore(c)

	next, err := st.Incr(binlog.SYNC, []byte("counter"), 5)
	c.Assert(err, IsNil)
	c.Assert(next, Equals, int64(5))

	next, err = st.Incr(binlog.SYNC, []byte("counter"), -2)
	c.Assert(err, IsNil)
	c.Assert(next, Equals, int64(3))
}

func (s *testKVSuite) TestMultiSetMultiDel(c *C) {
	st := newTestStore(c)

	n, err := st.MultiSet(binlog.SYNC, map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, 2)

	val, ok, err := st.Get([]byte("a"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsTrue)
	c.Assert(string(val), Equals, "1")

	n, err = st.MultiDel(binlog.SYNC, [][]byte{[]byte("a"), []byte("b"), []byte("missing")})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, 3)

	_, ok, err = st.Get([]byte("a"))
	c.Assert(err, IsNil)
	c.Assert(ok, IsFalse)
}

func (s *testKVSuite) TestKeysRangeAndLimit(c *C) {
	st := newTestStore(c)
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Assert(st.Set(binlog.SYNC, []byte(k), []byte("v")), IsNil)
	}

	keys, err := st.Keys(nil, nil, 2)
	c.Assert(err, IsNil)
	c.Assert(keys, HasLen, 2)
	c.Assert(string(keys[0]), Equals, "a")
	c.Assert(string(keys[1]), Equals, "b")

	keys, err = st.Keys([]byte("b"), []byte("d"), -1)
	c.Assert(err, IsNil)
	c.Assert(keys, HasLen, 2)
	c.Assert(string(keys[0]), Equals, "b")
	c.Assert(string(keys[1]), Equals, "c")
}
