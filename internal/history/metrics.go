package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsWrittenTotal counts durably written history rows.
	RecordsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perp_arb_history_records_written_total",
		Help: "Total sampled spread rows durably written",
	})

	// RecordsDroppedTotal counts observations discarded on queue overflow.
	RecordsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perp_arb_history_records_dropped_total",
		Help: "Total history observations dropped due to a full intent queue",
	})

	// BatchFlushesTotal counts successful batch writes.
	BatchFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perp_arb_history_batch_flushes_total",
		Help: "Total successful history batch flushes",
	})

	// WriteErrorsTotal counts failed batch writes.
	WriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perp_arb_history_write_errors_total",
		Help: "Total failed history batch writes",
	})
)
