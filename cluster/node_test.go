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
	"testing"

	. "github.com/pingcap/check"
)

func Test(t *testing.T) { TestingT(t) }

var _ = Suite(&testNodeSuite{})

type testNodeSuite struct{}

func (s *testNodeSuite) TestAddAndOwner(c *C) {
	t := NewNodeTable()
	c.Assert(t.AddKVNode(Node{ID: 1, Status: StatusServing, Range: KeyRange{Begin: "a", End: "m"}}), IsNil)
	c.Assert(t.AddKVNode(Node{ID: 2, Status: StatusServing, Range: KeyRange{Begin: "m", End: ""}}), IsNil)

	owner, ok := t.Owner("apple")
	c.Assert(ok, Equals, true)
	c.Assert(owner.ID, Equals, uint32(1))

	owner, ok = t.Owner("zebra")
	c.Assert(ok, Equals, true)
	c.Assert(owner.ID, Equals, uint32(2))

	_, ok = t.Owner("0")
	c.Assert(ok, Equals, false)
}

func (s *testNodeSuite) TestOverlapRejected(c *C) {
	t := NewNodeTable()
	c.Assert(t.AddKVNode(Node{ID: 1, Status: StatusServing, Range: KeyRange{Begin: "a", End: "m"}}), IsNil)
	err := t.AddKVNode(Node{ID: 2, Status: StatusServing, Range: KeyRange{Begin: "f", End: "z"}})
	c.Assert(err, NotNil)
}

func (s *testNodeSuite) TestNonServingMayOverlap(c *C) {
	t := NewNodeTable()
	c.Assert(t.AddKVNode(Node{ID: 1, Status: StatusServing, Range: KeyRange{Begin: "a", End: "m"}}), IsNil)
	c.Assert(t.AddKVNode(Node{ID: 2, Status: StatusInit, Range: KeyRange{Begin: "f", End: "z"}}), IsNil)
}

func (s *testNodeSuite) TestSetKVRangeRejectsOverlap(c *C) {
	t := NewNodeTable()
	c.Assert(t.AddKVNode(Node{ID: 1, Status: StatusServing, Range: KeyRange{Begin: "a", End: "m"}}), IsNil)
	c.Assert(t.AddKVNode(Node{ID: 2, Status: StatusServing, Range: KeyRange{Begin: "m", End: "z"}}), IsNil)

	err := t.SetKVRange(2, KeyRange{Begin: "f", End: "z"})
	c.Assert(err, NotNil)

	c.Assert(t.SetKVRange(2, KeyRange{Begin: "n", End: "z"}), IsNil)
	n, ok := t.Node(2)
	c.Assert(ok, Equals, true)
	c.Assert(n.Range.Begin, Equals, "n")
}

func (s *testNodeSuite) TestDelKVNode(c *C) {
	t := NewNodeTable()
	c.Assert(t.AddKVNode(Node{ID: 1, Status: StatusServing, Range: KeyRange{Begin: "a", End: "m"}}), IsNil)
	c.Assert(t.DelKVNode(1), IsNil)
	_, ok := t.Node(1)
	c.Assert(ok, Equals, false)
	c.Assert(t.DelKVNode(1), NotNil)
}

func (s *testNodeSuite) TestHashOwnerStable(c *C) {
	t := NewNodeTable()
	c.Assert(t.AddKVNode(Node{ID: 1, Status: StatusServing, Range: KeyRange{Begin: "a", End: "m"}}), IsNil)
	c.Assert(t.AddKVNode(Node{ID: 2, Status: StatusServing, Range: KeyRange{Begin: "m", End: ""}}), IsNil)

	r := NewRangeRouter(t)
	n1, err := r.HashOwner([]byte("shard-key"))
	c.Assert(err, IsNil)
	n2, err := r.HashOwner([]byte("shard-key"))
	c.Assert(err, IsNil)
	c.Assert(n1.ID, Equals, n2.ID)
}
