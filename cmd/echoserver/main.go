// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Command echoserver wires a Reactor, a TcpServer, a MemoryPool, a
// ConnectionPool and the obslog/obsmetrics façades into a single running
// process. Patterned on examples/reactor_echo/main.go (accept
// a connection, register it with the reactor, echo back what was read)
// and server/server.go's facade-assembly shape, adapted from WebSocket
// framing to the plain byte-stream TcpServer in this repo.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/hioload-reactor/internal/config"
	"github.com/momentics/hioload-reactor/internal/obslog"
	"github.com/momentics/hioload-reactor/internal/obsmetrics"
	"github.com/momentics/hioload-reactor/pool"
	"github.com/momentics/hioload-reactor/reactor"
	"github.com/momentics/hioload-reactor/registry"
	"github.com/momentics/hioload-reactor/server"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides HIOLOAD_LISTEN_ADDR / default)")
	metricsAddr := flag.String("metrics-addr", ":9100", "Prometheus metrics listen address")
	flag.Parse()

	cfg := config.FromEnv()
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	log := obslog.Component("echoserver")

	re, err := reactor.New(cfg.MaxEvents, cfg.PollTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create reactor")
	}

	srv, err := server.New(re, cfg.ListenAddr, cfg.BufferSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind server")
	}

	memPool := pool.NewMemoryPoolWithGrowth(cfg.BufferSize, cfg.MemoryChunkGrowth, cfg.MemoryChunkGrowth)
	connPool := pool.New(4096, func() (*pool.Connection, error) {
		return &pool.Connection{}, nil
	})
	svcRegistry := registry.New()
	svcRegistry.Register("echoserver", cfg.ListenAddr)

	srv.SetConnectionHandler(func(ev server.ConnectionEvent) {
		switch ev.Kind {
		case server.Connected:
			log.Info().Int("fd", ev.Fd).Msg("client connected")
		case server.Disconnected:
			log.Info().Int("fd", ev.Fd).Msg("client disconnected")
		}
	})

	srv.SetReceiveHandler(func(fd int, data []byte) {
		block := memPool.Allocate()
		n := copy(block.Bytes, data)
		if _, err := srv.Send(fd, block.Bytes[:n]); err != nil {
			log.Warn().Err(err).Int("fd", fd).Msg("send failed")
		}
		memPool.Deallocate(block)
	})

	go func() {
		re.Run()
	}()

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
	log.Info().Str("addr", cfg.ListenAddr).Msg("echoserver listening")

	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: obsmetrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	srv.Stop()
	time.Sleep(2 * cfg.PollTimeout)
	re.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metricsSrv.Shutdown(shutdownCtx)

	log.Info().
		Int("outstanding_pooled_connections", connPool.Outstanding()).
		Strs("services", svcRegistry.Services()).
		Msg("shutdown complete")
}
