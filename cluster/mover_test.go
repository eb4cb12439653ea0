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

package cluster

import (
	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/store"
	. "github.com/pingcap/check"
)

var _ = Suite(&testMoverSuite{})

type testMoverSuite struct{}

func (s *testMoverSuite) TestMoveRangeCopiesAcrossTypes(c *C) {
	srcEng := engine.NewMemEngine()
	srcLog, err := binlog.Open(srcEng, binlog.DefaultCapacityDebug)
	c.Assert(err, IsNil)
	src := store.New(srcEng, srcLog)

	c.Assert(src.Set(binlog.SYNC, []byte("apple"), []byte("1")), IsNil)
	c.Assert(src.Set(binlog.SYNC, []byte("zebra"), []byte("2")), IsNil)
	_, err = src.HSet(binlog.SYNC, []byte("avocado"), []byte("f"), []byte("v"))
	c.Assert(err, IsNil)
	_, err = src.ZSet(binlog.SYNC, []byte("banana"), []byte("m"), 5)
	c.Assert(err, IsNil)

	dstEng := engine.NewMemEngine()

	m := NewMover(srcEng, dstEng)
	n, err := m.MoveRange(KeyRange{Begin: "a", End: "m"})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(3)) // apple (kv), avocado (hash), banana (zset)

	dstLog, err := binlog.Open(dstEng, binlog.DefaultCapacityDebug)
	c.Assert(err, IsNil)
	dst := store.New(dstEng, dstLog)

	v, ok, err := dst.Get([]byte("apple"))
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Assert(string(v), Equals, "1")

	_, ok, err = dst.Get([]byte("zebra"))
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, false)

	hv, ok, err := dst.HGet([]byte("avocado"), []byte("f"))
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, true)
	c.Assert(string(hv), Equals, "v")
}

func (s *testMoverSuite) TestDeleteRangeRemovesMovedEntries(c *C) {
	srcEng := engine.NewMemEngine()
	srcLog, err := binlog.Open(srcEng, binlog.DefaultCapacityDebug)
	c.Assert(err, IsNil)
	src := store.New(srcEng, srcLog)
	c.Assert(src.Set(binlog.SYNC, []byte("apple"), []byte("1")), IsNil)

	m := NewMover(srcEng, engine.NewMemEngine())
	n, err := m.DeleteRange(KeyRange{Begin: "a", End: "m"})
	c.Assert(err, IsNil)
	c.Assert(n, Equals, int64(1))

	_, ok, err := src.Get([]byte("apple"))
	c.Assert(err, IsNil)
	c.Assert(ok, Equals, false)
}
