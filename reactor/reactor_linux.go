//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux epoll(7) reactor: one epfd, one handler map, one dedicated
// goroutine running Run's epoll_wait loop. Patterned on
// reactor/reactor_linux.go (golang.org/x/sys/unix epoll calls) and
// reactor/epoll_reactor.go (map-guarded-by-lock dispatch with recover
// around each callback), resolving their Open Question toward
// level-triggered (no EPOLLET).

package reactor

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/internal/obslog"
	"github.com/momentics/hioload-reactor/internal/obsmetrics"
	"github.com/momentics/hioload-reactor/reactorerr"
)

// Reactor owns a single epoll instance, a fd -> HandlerEntry registry, and
// the atomic running flag that gates its dispatch loop.
type Reactor struct {
	epfd int

	mu       sync.Mutex
	handlers map[int]HandlerEntry

	running     atomic.Bool
	pollTimeout time.Duration
	maxEvents   int
}

// New creates a new epoll instance. maxEvents and pollTimeout come from
// internal/config.Config; pass <=0 to use the package defaults (1024, 100ms).
func New(maxEvents int, pollTimeout time.Duration) (*Reactor, error) {
	if maxEvents <= 0 {
		maxEvents = 1024
	}
	if pollTimeout <= 0 {
		pollTimeout = 100 * time.Millisecond
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, reactorerr.New(reactorerr.KindOsError, "epoll_create1", 0, err)
	}
	return &Reactor{
		epfd:        epfd,
		handlers:    make(map[int]HandlerEntry),
		pollTimeout: pollTimeout,
		maxEvents:   maxEvents,
	}, nil
}

func toEpollEvents(i Interest) uint32 {
	var ev uint32
	if i&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if i&PeerHangup != 0 {
		ev |= unix.EPOLLRDHUP
	}
	if i&Hangup != 0 {
		ev |= unix.EPOLLHUP
	}
	return ev
}

func fromEpollEvents(mask uint32) Interest {
	var i Interest
	if mask&unix.EPOLLIN != 0 {
		i |= Readable
	}
	if mask&unix.EPOLLRDHUP != 0 {
		i |= PeerHangup
	}
	if mask&unix.EPOLLHUP != 0 {
		i |= Hangup
	}
	return i
}

// AddHandler registers fd with epoll under interest, storing cb in the
// handler map. The epoll data.u64 field carries fd itself (as
// reactor_linux.go does via its udata plumbing) rather than a pointer, so
// the loop never dereferences Go-managed memory from kernel-returned data.
func (r *Reactor) AddHandler(fd int, interest Interest, cb Callback) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		if errors.Is(err, unix.EEXIST) {
			return reactorerr.New(reactorerr.KindAlreadyRegistered, "epoll_ctl_add", fd, err)
		}
		return reactorerr.New(reactorerr.KindOsError, "epoll_ctl_add", fd, err)
	}
	r.mu.Lock()
	r.handlers[fd] = HandlerEntry{Fd: fd, Interest: interest, Callback: cb}
	r.mu.Unlock()
	obsmetrics.HandlersActive.Inc()
	return nil
}

// RemoveHandler deregisters fd. EBADF/ENOENT are tolerated (the fd was
// already closed or never present) and reported as success with a warning.
func (r *Reactor) RemoveHandler(fd int) error {
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	r.mu.Lock()
	_, existed := r.handlers[fd]
	delete(r.handlers, fd)
	r.mu.Unlock()
	if existed {
		obsmetrics.HandlersActive.Dec()
	}
	if err != nil {
		if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
			obslog.Component("reactor").Warn().Int("fd", fd).Err(err).Msg("remove_handler: fd already gone")
			return nil
		}
		return reactorerr.New(reactorerr.KindOsError, "epoll_ctl_del", fd, err)
	}
	if !existed {
		return reactorerr.New(reactorerr.KindNotRegistered, "epoll_ctl_del", fd, nil)
	}
	return nil
}

// Run sets running and loops on epoll_wait until Stop clears it or a
// non-EINTR epoll_wait failure occurs. Handlers run synchronously, one at a
// time, on this goroutine, in the order epoll_wait returned them.
func (r *Reactor) Run() error {
	r.running.Store(true)
	events := make([]unix.EpollEvent, r.maxEvents)
	timeoutMs := int(r.pollTimeout / time.Millisecond)
	if timeoutMs <= 0 {
		timeoutMs = 1
	}
	log := obslog.Component("reactor")

	for r.running.Load() {
		n, err := unix.EpollWait(r.epfd, events, timeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return reactorerr.New(reactorerr.KindOsError, "epoll_wait", 0, err)
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			r.mu.Lock()
			entry, ok := r.handlers[fd]
			r.mu.Unlock()
			if !ok {
				// Handler removed mid-batch; silently dropped.
				continue
			}
			mask := fromEpollEvents(events[i].Events)
			dispatch(entry.Callback, fd, mask, log)
		}
	}
	return nil
}

// dispatch invokes cb, recovering a panic so one misbehaving handler does
// not take down the whole reactor loop (patterned on
// epoll_reactor.go's recover-around-callback approach).
func dispatch(cb Callback, fd int, mask Interest, log zerolog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Int("fd", fd).Interface("panic", rec).Msg("handler panicked")
		}
	}()
	obsmetrics.DispatchTotal.Inc()
	cb(fd, mask)
}

// Stop clears the running flag; Run observes this within one poll timeout.
func (r *Reactor) Stop() {
	r.running.Store(false)
}

// Close closes the epoll fd. Registered client fds are owned by their
// registrant, not the Reactor, and are not closed here.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}
