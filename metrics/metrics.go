// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics wraps the process counters/gauges for admission-path
// health. RPC/CLI surfaces remain a non-goal, so this package stops at
// registration: the binary decides whether and where to expose the
// registry over HTTP.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every gauge/counter this core exposes.
type Metrics struct {
	Registry *prometheus.Registry

	PeersConnected   prometheus.Gauge
	OrphansPending   prometheus.Gauge
	OBCReleasesTotal prometheus.Counter
	InitialSyncState prometheus.Gauge
	AddrDroppedTotal prometheus.Counter
}

// New constructs and registers a fresh set of metrics against a new
// registry, following the teacher's pattern of one process owning its own
// registry rather than relying on the global default.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		PeersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "epiond",
			Name:      "peers_connected",
			Help:      "Number of peers currently tracked, in any lifecycle state.",
		}),
		OrphansPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "epiond",
			Name:      "obc_orphans_pending",
			Help:      "Number of blocks currently held in the orphan container.",
		}),
		OBCReleasesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epiond",
			Name:      "obc_releases_total",
			Help:      "Total number of blocks released from the orphan container.",
		}),
		InitialSyncState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "epiond",
			Name:      "initial_sync_active",
			Help:      "1 while the node is in initial sync, 0 once initial sync has ended.",
		}),
		AddrDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epiond",
			Name:      "addr_messages_dropped_total",
			Help:      "Total number of ADDR messages dropped for exceeding the maximum size.",
		}),
	}

	registry.MustRegister(
		m.PeersConnected,
		m.OrphansPending,
		m.OBCReleasesTotal,
		m.InitialSyncState,
		m.AddrDroppedTotal,
	)

	return m
}
