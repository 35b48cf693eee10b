//go:build !linux
// +build !linux

// File: server/server_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-Linux placeholder, mirroring reactor/reactor_stub.go: this server is
// built on raw epoll-driven sockets and has no portable equivalent here.

package server

import (
	"errors"

	"github.com/momentics/hioload-reactor/reactor"
)

// ErrUnsupportedPlatform is returned by every TcpServer method on
// non-Linux GOOS.
var ErrUnsupportedPlatform = errors.New("server: raw-socket TcpServer requires GOOS=linux")

type ConnectionKind int

const (
	Connected ConnectionKind = iota
	Disconnected
)

type ConnectionEvent struct {
	Kind ConnectionKind
	Fd   int
}

// TcpServer is an unusable placeholder outside Linux.
type TcpServer struct{}

func New(re *reactor.Reactor, addr string, bufferSize int) (*TcpServer, error) {
	return nil, ErrUnsupportedPlatform
}

func (s *TcpServer) SetReceiveHandler(fn func(fd int, data []byte)) {}

func (s *TcpServer) SetConnectionHandler(fn func(ev ConnectionEvent)) {}

func (s *TcpServer) Start() error { return ErrUnsupportedPlatform }

func (s *TcpServer) Send(clientFd int, data []byte) (int, error) {
	return 0, ErrUnsupportedPlatform
}

func (s *TcpServer) Stop() error { return ErrUnsupportedPlatform }

func (s *TcpServer) ListenFd() int { return -1 }
