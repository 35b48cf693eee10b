// File: pool/connectionpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ConnectionPool is a bounded pool of opaque Connection handles with
// blocking acquire / non-blocking release. FIFO ordering for the available
// queue is backed by github.com/eapache/queue, a ring-buffer-backed deque,
// rather than a plain slice, so release order equals reuse order without
// repeated reallocation under churn.

package pool

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-reactor/internal/obsmetrics"
)

// Connection is an opaque handle wrapping a file descriptor. Identity is
// the fd value.
type Connection struct {
	Fd int
}

// Factory creates a new Connection. It may fail (e.g. the underlying
// dial/socket call errored); on failure ConnectionPool does not count the
// attempt against max.
type Factory func() (*Connection, error)

// ConnectionPool hands out at most max Connections at any time, creating
// them lazily via factory and reusing released ones in FIFO order.
type ConnectionPool struct {
	mu           sync.Mutex
	cond         *sync.Cond
	max          int
	totalCreated int
	available    *queue.Queue
	factory      Factory
}

// New constructs a ConnectionPool. No connections are created eagerly.
func New(max int, factory Factory) *ConnectionPool {
	p := &ConnectionPool{
		max:       max,
		available: queue.New(),
		factory:   factory,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Get blocks until a Connection is available: returns one from the
// available queue if non-empty; otherwise creates a fresh one via factory
// if under max; otherwise blocks on a condition variable until a release
// occurs. Safe for concurrent use from multiple goroutines.
func (p *ConnectionPool) Get() (*Connection, error) {
	p.mu.Lock()
	for {
		if p.available.Length() > 0 {
			c := p.available.Remove().(*Connection)
			p.mu.Unlock()
			obsmetrics.PoolConnectionsInUse.Inc()
			return c, nil
		}
		if p.totalCreated < p.max {
			p.totalCreated++
			p.mu.Unlock()
			c, err := p.factory()
			if err != nil {
				p.mu.Lock()
				p.totalCreated--
				p.mu.Unlock()
				return nil, err
			}
			obsmetrics.PoolConnectionsInUse.Inc()
			return c, nil
		}
		p.cond.Wait()
	}
}

// Release returns conn to the pool and wakes exactly one waiter (if any).
func (p *ConnectionPool) Release(conn *Connection) {
	p.mu.Lock()
	p.available.Add(conn)
	p.mu.Unlock()
	obsmetrics.PoolConnectionsInUse.Dec()
	p.cond.Signal()
}

// Outstanding returns the number of Connections currently acquired and not
// yet released: total_created - len(available).
func (p *ConnectionPool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalCreated - p.available.Length()
}
