// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor provides a single-epoll-instance I/O event reactor: an
// fd -> handler registry, a blocking epoll_wait loop, and synchronous,
// reactor-thread dispatch of readiness callbacks.
package reactor
