// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package server implements TcpServer, a non-blocking raw-socket TCP
// listener driven by a reactor.Reactor: SO_REUSEADDR + O_NONBLOCK bind and
// listen via golang.org/x/sys/unix, an accept callback that drains
// backlog until EAGAIN, and per-connection read callbacks delivering data
// to a user-supplied receive handler.
package server
