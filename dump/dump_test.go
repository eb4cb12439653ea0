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

package dump

import (
	"testing"

	"github.com/ekjotsingh/kvserver/binlog"
	"github.com/ekjotsingh/kvserver/engine"
	"github.com/ekjotsingh/kvserver/store"
)

type recordingSink struct {
	blocks [][][]byte
}

func (s *recordingSink) WriteRecords(records [][]byte) error {
	cp := make([][]byte, len(records))
	for i, r := range records {
		cp[i] = append([]byte(nil), r...)
	}
	s.blocks = append(s.blocks, cp)
	return nil
}

func TestStreamEmitsBeginSetEnd(t *testing.T) {
	eng := engine.NewMemEngine()
	log, err := binlog.Open(eng, binlog.DefaultCapacityDebug)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(eng, log)
	if err := st.Set(binlog.SYNC, []byte("Alice"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := st.Set(binlog.SYNC, []byte("Bob"), []byte("2")); err != nil {
		t.Fatal(err)
	}

	sink := &recordingSink{}
	count, err := Stream(eng, Options{Start: []byte("A"), Limit: 10}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries, got %d", count)
	}
	if len(sink.blocks) != 4 {
		t.Fatalf("expected begin + 2 sets + end = 4 blocks, got %d", len(sink.blocks))
	}
	if string(sink.blocks[0][0]) != "begin" {
		t.Fatalf("expected first block to be begin, got %q", sink.blocks[0][0])
	}
	last := sink.blocks[len(sink.blocks)-1]
	if string(last[0]) != "end" || string(last[1]) != "2" {
		t.Fatalf("expected end 2, got %q %q", last[0], last[1])
	}
}
