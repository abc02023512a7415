package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesReceivedTotal tracks updates accepted into the queues.
	UpdatesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ingest_updates_received_total",
			Help: "Total number of market-data updates accepted by the ingestion stage",
		},
		[]string{"venue", "queue"},
	)

	// UpdatesDroppedTotal tracks updates dropped before or during enqueue.
	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_ingest_updates_dropped_total",
			Help: "Total number of market-data updates dropped by the ingestion stage",
		},
		[]string{"venue", "queue", "reason"},
	)

	// QueueDepth tracks the current depth of each bounded queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "perp_arb_ingest_queue_depth",
			Help: "Current depth of the ingestion queues",
		},
		[]string{"queue"},
	)
)
