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

package netio

import "testing"

func TestEncodeDecodeBlockRoundTrip(t *testing.T) {
	records := [][]byte{[]byte("set"), []byte("foo"), []byte("bar")}
	buf := encodeBlock(records)
	got, consumed, err := decodeBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(buf) {
		t.Fatalf("expected to consume %d bytes, got %d", len(buf), consumed)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(got))
	}
	for i, r := range records {
		if string(got[i]) != string(r) {
			t.Fatalf("record %d: expected %q, got %q", i, r, got[i])
		}
	}
}

func TestDecodeBlockIncomplete(t *testing.T) {
	buf := []byte("3\nfoo\n")
	if _, _, err := decodeBlock(buf); err != ErrIncompleteFrame {
		t.Fatalf("expected ErrIncompleteFrame, got %v", err)
	}
}

func TestDecodeBlockTwoRecordsThenMore(t *testing.T) {
	first := encodeBlock([][]byte{[]byte("ping")})
	second := encodeBlock([][]byte{[]byte("pong")})
	buf := append(append([]byte{}, first...), second...)

	records, consumed, err := decodeBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != len(first) {
		t.Fatalf("expected to consume only the first block (%d bytes), got %d", len(first), consumed)
	}
	if len(records) != 1 || string(records[0]) != "ping" {
		t.Fatalf("unexpected records: %v", records)
	}

	records2, consumed2, err := decodeBlock(buf[consumed:])
	if err != nil {
		t.Fatal(err)
	}
	if consumed2 != len(second) {
		t.Fatalf("expected to consume the second block, got %d", consumed2)
	}
	if len(records2) != 1 || string(records2[0]) != "pong" {
		t.Fatalf("unexpected records: %v", records2)
	}
}

func TestDecodeBlockRejectsOversizedFrame(t *testing.T) {
	buf := []byte("33554433\n")
	if _, _, err := decodeBlock(buf); err != ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestDecodeBlockTrailingCR(t *testing.T) {
	buf := []byte("3\r\nfoo\r\n\r\n")
	records, _, err := decodeBlock(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || string(records[0]) != "foo" {
		t.Fatalf("unexpected records: %v", records)
	}
}
