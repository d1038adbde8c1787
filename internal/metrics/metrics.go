// Copyright (C) 2025 loxone-go
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics exposes Prometheus instrumentation for the frame
// demultiplexer, the key-exchange/authenticate flows, and the request
// engine's outstanding-request discipline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loxone_client"

// Registry is the collector registry all package metrics register against.
// Callers that expose /metrics via promhttp.HandlerFor should use this
// registry rather than the global default, so a process embedding this
// client alongside unrelated Prometheus instrumentation doesn't collide.
var Registry = prometheus.NewRegistry()

var (
	// FramesRead counts the keep-alive and out-of-service messages the
	// client's read loop consumes, by message type name. Other message types
	// are not counted here.
	FramesRead = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "frames_read_total",
			Help:      "Total number of keep-alive and out-of-service messages demultiplexed from the transport, by message type",
		},
		[]string{"message_type"},
	)

	// EventRecordsDecoded counts individual event-table records decoded, by
	// table kind (value, text, daytimer, weather).
	EventRecordsDecoded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "event_records_decoded_total",
			Help:      "Total number of event-table records decoded, by table kind",
		},
		[]string{"kind"},
	)

	// DecodeErrors counts frame or event-table decode failures.
	DecodeErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "decode_errors_total",
			Help:      "Total number of frame or event-table decode errors, by stage",
		},
		[]string{"stage"},
	)

	// RequestsTotal counts command requests sent, by outcome (ok,
	// transport_error, closed).
	RequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of command requests sent, by outcome",
		},
		[]string{"outcome"},
	)

	// RequestDuration tracks round-trip latency for command requests, by
	// endpoint.
	RequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Command request round-trip latency in seconds, by endpoint",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"endpoint"},
	)

	// ConnectionState reports the client's current connection-state-machine
	// value (spec §4.6) as a gauge: 0=Connected, 1=KeyExchanged,
	// 2=Authenticated, 3=Subscribed.
	ConnectionState = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connection_state",
			Help:      "Current connection state: 0=connected 1=key_exchanged 2=authenticated 3=subscribed",
		},
	)
)
