package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesFoundTotal counts opportunity creations.
	OpportunitiesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perp_arb_opportunities_found_total",
		Help: "Total number of arbitrage opportunities created",
	})

	// OpportunitiesExpiredTotal counts opportunity expiries.
	OpportunitiesExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perp_arb_opportunities_expired_total",
		Help: "Total number of arbitrage opportunities expired",
	})

	// ActiveOpportunities tracks the size of the live opportunity set.
	ActiveOpportunities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perp_arb_opportunities_active",
		Help: "Number of currently tracked arbitrage opportunities",
	})
)
