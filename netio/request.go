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

// Request is one parsed command: the first SSDB record as Cmd, every
// subsequent record as Args. Both the SSDB framer and the RESP adapter
// produce the same Request shape so dispatch never needs to know which
// wire format a link negotiated.
type Request struct {
	Cmd  string
	Args [][]byte
}

// Status is the first response record (spec.md §6.1).
type Status string

// Status values.
const (
	StatusOK          Status = "ok"
	StatusNotFound    Status = "not_found"
	StatusError       Status = "error"
	StatusClientError Status = "client_error"
	StatusNoAuth      Status = "noauth"
	StatusOutOfRange  Status = "out_of_range"
)

// Response is a status word followed by zero or more data records.
type Response struct {
	Status Status
	Data   [][]byte
}

// OK builds a StatusOK response carrying data.
func OK(data ...[]byte) *Response { return &Response{Status: StatusOK, Data: data} }

// Err builds an error response with a single message record.
func Err(status Status, msg string) *Response {
	return &Response{Status: status, Data: [][]byte{[]byte(msg)}}
}
