package wsfeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks active WebSocket connections per venue.
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "perp_arb_ws_active_connections",
			Help: "Number of active WebSocket connections",
		},
		[]string{"venue"},
	)

	// ReconnectAttemptsTotal tracks reconnection attempts per venue.
	ReconnectAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ws_reconnect_attempts_total",
			Help: "Total number of WebSocket reconnection attempts",
		},
		[]string{"venue"},
	)

	// ReconnectFailuresTotal tracks reconnection failures per venue.
	ReconnectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ws_reconnect_failures_total",
			Help: "Total number of WebSocket reconnection failures",
		},
		[]string{"venue"},
	)

	// FramesReceivedTotal tracks inbound frames per venue.
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ws_frames_received_total",
			Help: "Total number of WebSocket frames received",
		},
		[]string{"venue"},
	)

	// FramesDroppedTotal tracks frames dropped before delivery.
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ws_frames_dropped_total",
			Help: "Total number of WebSocket frames dropped before delivery",
		},
		[]string{"venue", "reason"},
	)

	// BytesReceivedTotal tracks inbound payload bytes per venue.
	BytesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ws_bytes_received_total",
			Help: "Total WebSocket payload bytes received",
		},
		[]string{"venue"},
	)

	// BytesSentTotal tracks outbound payload bytes per venue.
	BytesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ws_bytes_sent_total",
			Help: "Total WebSocket payload bytes sent",
		},
		[]string{"venue"},
	)

	// ConnectionDuration tracks WebSocket connection lifetime per venue.
	ConnectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "perp_arb_ws_connection_duration_seconds",
			Help:    "Duration of WebSocket connections before disconnect",
			Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
		},
		[]string{"venue"},
	)
)
