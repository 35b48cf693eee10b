// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared types for the epoll reactor: interest flags, the handler
// callback signature, and the HandlerEntry record. The platform-specific
// implementation lives in reactor_linux.go; reactor_stub.go covers every
// other GOOS, since this core is Linux-only.

package reactor

// Interest is a bitwise-OR of event kinds a registrant wants notified
// about.
type Interest uint32

const (
	// Readable corresponds to EPOLLIN.
	Readable Interest = 1 << iota
	// PeerHangup corresponds to EPOLLRDHUP (peer write-close).
	PeerHangup
	// Hangup corresponds to EPOLLHUP.
	Hangup
)

// Callback is invoked on the reactor thread with the actual delivered
// event mask. It must not block indefinitely — there are no timeouts on
// user callbacks, so a slow callback blocks the whole reactor.
type Callback func(fd int, events Interest)

// HandlerEntry is the registered (fd, interest, callback) triple.
type HandlerEntry struct {
	Fd       int
	Interest Interest
	Callback Callback
}
