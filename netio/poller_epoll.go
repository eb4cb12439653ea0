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

//go:build linux

package netio

import (
	"time"

	"github.com/pingcap/errors"
	"golang.org/x/sys/unix"
)

// EpollPoller implements Poller on Linux via epoll, level-triggered
// (no EPOLLET) to match spec.md §4.5's "level-triggered edge-agnostic"
// requirement.
type EpollPoller struct {
	epfd int
}

// NewEpollPoller creates a new epoll instance.
func NewEpollPoller() (*EpollPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &EpollPoller{epfd: fd}, nil
}

func toEpollEvents(e Event) uint32 {
	var out uint32
	if e&EventIn != 0 {
		out |= unix.EPOLLIN
	}
	if e&EventOut != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func fromEpollEvents(e uint32) Event {
	var out Event
	if e&unix.EPOLLIN != 0 {
		out |= EventIn
	}
	if e&unix.EPOLLOUT != 0 {
		out |= EventOut
	}
	return out
}

// Register implements Poller.
func (p *EpollPoller) Register(fd int, events Event) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	return errors.Trace(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev))
}

// Modify implements Poller.
func (p *EpollPoller) Modify(fd int, events Event) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	return errors.Trace(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev))
}

// Deregister implements Poller.
func (p *EpollPoller) Deregister(fd int) error {
	return errors.Trace(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil))
}

// Wait implements Poller.
func (p *EpollPoller) Wait(timeout time.Duration) ([]ReadyFD, error) {
	events := make([]unix.EpollEvent, 64)
	ms := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(p.epfd, events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, errors.Trace(err)
	}
	out := make([]ReadyFD, n)
	for i := 0; i < n; i++ {
		out[i] = ReadyFD{FD: int(events[i].Fd), Events: fromEpollEvents(events[i].Events)}
	}
	return out, nil
}

// Close implements Poller.
func (p *EpollPoller) Close() error {
	return errors.Trace(unix.Close(p.epfd))
}
