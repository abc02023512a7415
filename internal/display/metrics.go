package display

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DisplayedRows tracks the size of the rendered opportunity table.
	DisplayedRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perp_arb_display_rows",
		Help: "Number of rows in the rendered opportunity table",
	})

	// ScrollerEmittedTotal counts scroller lines by producer.
	ScrollerEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_display_scroller_emitted_total",
			Help: "Total number of scroller lines emitted",
		},
		[]string{"source"},
	)

	// ScrollerSuppressedTotal counts scroller suppressions by reason.
	ScrollerSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perp_arb_display_scroller_suppressed_total",
			Help: "Total number of scroller lines suppressed before emission",
		},
		[]string{"reason"},
	)
)
