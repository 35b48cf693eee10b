// File: internal/obslog/obslog.go
// Package obslog is the process-wide logging façade for the reactor core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-safe, level-gated writes, lazily initialized once on first use.
// Mirrors the way control-plane singletons are treated elsewhere in this
// style of codebase: no mocking seam is required, only a documented init
// order.

package obslog

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	once    sync.Once
	base    zerolog.Logger
	levelMu sync.Mutex
	level   atomic.Int32 // zerolog.Level, stored so SetLevel is lock-free to read
)

func init() {
	level.Store(int32(zerolog.InfoLevel))
}

// Default returns the process-wide logger, initializing it on first call.
// Set HIOLOAD_LOG_PRETTY=1 for a human-readable console writer; otherwise
// output is structured JSON on stderr.
func Default() zerolog.Logger {
	once.Do(func() {
		var w = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}
		if os.Getenv("HIOLOAD_LOG_PRETTY") != "1" {
			base = zerolog.New(os.Stderr).With().Timestamp().Logger()
		} else {
			base = zerolog.New(w).With().Timestamp().Logger()
		}
	})
	return base.Level(zerolog.Level(level.Load()))
}

// SetLevel changes the process-wide minimum log level. Safe for concurrent
// use; takes effect on the next Default()/Component() call.
func SetLevel(l zerolog.Level) {
	levelMu.Lock()
	defer levelMu.Unlock()
	level.Store(int32(l))
}

// Component returns a child logger tagged with a component name, the way
// per-subsystem log lines are attributed elsewhere (reactor, server,
// pool, ...).
func Component(name string) zerolog.Logger {
	return Default().With().Str("component", name).Logger()
}
