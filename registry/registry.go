// File: registry/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package registry is a deliberately small service registry and
// round-robin picker: a name maps to an ordered list of backend addresses,
// and Pick rotates through them with an atomic counter. The
// register/deregister/lookup triad and the round-robin counter mirror the
// distillation source's ServiceRegistry and LoadBalancer types; the map
// structure borrows internal/session.sessionManager's shape
// (map guarded by a mutex, one entry per key) trimmed to the unsharded
// form both sources use — no per-connection lifecycle, no fnv32 sharding.
package registry

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNotFound is returned by Pick and Remove for an unknown service name.
var ErrNotFound = errors.New("registry: service not found")

// ErrEmpty is returned by Pick when a service name is registered but has
// no backends.
var ErrEmpty = errors.New("registry: service has no backends")

type entry struct {
	backends []string
	counter  atomic.Uint64
}

// Registry maps service names to a list of backend addresses and hands
// them out round-robin.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*entry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{services: make(map[string]*entry)}
}

// Register adds backend to name's backend list. Registering the same
// backend twice appends it twice, giving it double weight in rotation;
// callers that want set semantics should check Backends first.
func (r *Registry) Register(name, backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.services[name]
	if !ok {
		e = &entry{}
		r.services[name] = e
	}
	e.backends = append(e.backends, backend)
}

// Deregister removes every occurrence of backend from name's list.
func (r *Registry) Deregister(name, backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.services[name]
	if !ok {
		return
	}
	kept := e.backends[:0]
	for _, b := range e.backends {
		if b != backend {
			kept = append(kept, b)
		}
	}
	e.backends = kept
}

// Remove deletes name and all its backends entirely.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[name]; !ok {
		return ErrNotFound
	}
	delete(r.services, name)
	return nil
}

// Pick returns the next backend for name in round-robin order.
func (r *Registry) Pick(name string) (string, error) {
	r.mu.RLock()
	e, ok := r.services[name]
	r.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	r.mu.RLock()
	n := len(e.backends)
	if n == 0 {
		r.mu.RUnlock()
		return "", ErrEmpty
	}
	idx := e.counter.Add(1) - 1
	backend := e.backends[int(idx%uint64(n))]
	r.mu.RUnlock()
	return backend, nil
}

// Backends returns a snapshot copy of name's current backend list.
func (r *Registry) Backends(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.services[name]
	if !ok {
		return nil
	}
	out := make([]string, len(e.backends))
	copy(out, e.backends)
	return out
}

// Services returns the set of currently registered service names.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	return out
}
