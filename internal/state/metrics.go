package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsProcessedTotal tracks updates applied to the state store.
	ItemsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_state_items_processed_total",
			Help: "Total number of market-data updates applied to the state store",
		},
		[]string{"queue"},
	)

	// ProcessingErrorsTotal tracks items the processing stage could not apply.
	ProcessingErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perp_arb_state_processing_errors_total",
		Help: "Total number of items the processing stage skipped as malformed",
	})
)
