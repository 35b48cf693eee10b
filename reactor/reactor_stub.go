//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This core is Linux-only (no kqueue, no IOCP, no select),
// but the module must still compile on other GOOS so `go vet ./...` and
// editors on non-Linux machines don't choke on the whole tree. Patterned on
// reactor/reactor_stub.go, which takes the same stance
// for its IOCP-less build.

package reactor

import (
	"errors"
	"time"
)

// ErrUnsupportedPlatform is returned by every Reactor method on non-Linux
// GOOS.
var ErrUnsupportedPlatform = errors.New("reactor: epoll reactor requires GOOS=linux")

// Reactor is an unusable placeholder outside Linux.
type Reactor struct{}

// New always fails on non-Linux platforms.
func New(maxEvents int, pollTimeout time.Duration) (*Reactor, error) {
	return nil, ErrUnsupportedPlatform
}

func (r *Reactor) AddHandler(fd int, interest Interest, cb Callback) error {
	return ErrUnsupportedPlatform
}

func (r *Reactor) RemoveHandler(fd int) error {
	return ErrUnsupportedPlatform
}

func (r *Reactor) Run() error {
	return ErrUnsupportedPlatform
}

func (r *Reactor) Stop() {}

func (r *Reactor) Close() error {
	return ErrUnsupportedPlatform
}
