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
	"github.com/pingcap/errors"
	"github.com/spaolacci/murmur3"
)

// RangeRouter answers "which node owns this key" against a NodeTable.
// The spec'd model is lexical range sharding (NodeTable.Owner); this
// type adds one supplemental fallback noted in SPEC_FULL.md: when a
// client supplies a routing hint instead of the literal key (e.g. a
// sharding key distinct from the storage key), HashOwner buckets that
// hint across the same node count via murmur3 so callers get a stable
// answer without exposing range internals.
type RangeRouter struct {
	table *NodeTable
}

// NewRangeRouter binds a router to table.
func NewRangeRouter(table *NodeTable) *RangeRouter {
	return &RangeRouter{table: table}
}

// Owner is the primary, spec'd lookup: the SERVING node whose range
// contains key.
func (r *RangeRouter) Owner(key string) (Node, bool) {
	return r.table.Owner(key)
}

// HashOwner buckets hint into the SERVING node set by murmur3(hint) mod
// len(nodes), for callers that route by a hint rather than the literal
// stored key. It is a convenience on top of the range model, not a
// replacement for it: a node's Range is still authoritative for what
// that node actually owns.
func (r *RangeRouter) HashOwner(hint []byte) (Node, error) {
	nodes := r.table.Nodes()
	var serving []Node
	for _, n := range nodes {
		if n.Status == StatusServing {
			serving = append(serving, n)
		}
	}
	if len(serving) == 0 {
		return Node{}, errors.New("cluster: no serving nodes")
	}
	h := murmur3.Sum32(hint)
	return serving[int(h)%len(serving)], nil
}
