// File: internal/obsmetrics/obsmetrics.go
// Package obsmetrics is the process-wide Prometheus metrics façade for the
// reactor core, mirroring the shape of a package-level Prometheus metrics
// registrar.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HandlersActive tracks the number of fds currently registered with a Reactor.
	HandlersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hioload_reactor_handlers_active",
		Help: "Number of file descriptors currently registered with the reactor",
	})

	// DispatchTotal counts readiness callbacks the reactor has invoked.
	DispatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hioload_reactor_dispatch_total",
		Help: "Total number of handler callbacks dispatched by the reactor",
	})

	// ServerConnectionsActive tracks live client connections accepted by a TcpServer.
	ServerConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hioload_server_connections_active",
		Help: "Current number of accepted client connections",
	})

	// ServerBytesReadTotal counts bytes delivered to receive handlers.
	ServerBytesReadTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hioload_server_bytes_read_total",
		Help: "Total bytes read from client connections and delivered to the receive handler",
	})

	// PoolConnectionsInUse tracks outstanding ConnectionPool acquisitions.
	PoolConnectionsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hioload_pool_connections_in_use",
		Help: "Number of connections currently acquired and not yet released",
	})

	// PoolMemoryBlocksAllocated counts blocks carved from MemoryPool chunks
	// (the initial chunk and every growth chunk).
	PoolMemoryBlocksAllocated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hioload_pool_memory_blocks_allocated",
		Help: "Total number of fixed-size blocks carved from newly grown memory pool chunks",
	})
)

func init() {
	prometheus.MustRegister(
		HandlersActive,
		DispatchTotal,
		ServerConnectionsActive,
		ServerBytesReadTotal,
		PoolConnectionsInUse,
		PoolMemoryBlocksAllocated,
	)
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
