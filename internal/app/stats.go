package app

import (
	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/internal/history"
	"github.com/mselser95/perp-arb-monitor/internal/state"
)

// VenueStatsView is one venue's transport counters.
type VenueStatsView struct {
	BytesReceived  int64 `json:"bytes_received"`
	BytesSent      int64 `json:"bytes_sent"`
	ReconnectCount int64 `json:"reconnect_count"`
}

// QueueStatsView is one ingestion queue's counters.
type QueueStatsView struct {
	Received uint64 `json:"received"`
	Dropped  uint64 `json:"dropped"`
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
}

// StatsView is the /api/stats response.
type StatsView struct {
	Venues         map[string]VenueStatsView `json:"venues"`
	OrderbookQueue QueueStatsView            `json:"orderbook_queue"`
	TickerQueue    QueueStatsView            `json:"ticker_queue"`
	Processor      state.ProcessorStats      `json:"processor"`
	Opportunities  arbitrage.FinderStats     `json:"opportunities"`
	BestSpreads    map[string]float64        `json:"best_spread_pct"`
	History        *history.RecorderStats    `json:"history,omitempty"`
}

// collectStats aggregates counters from every stage for the stats endpoint.
func (a *App) collectStats() interface{} {
	ingestStats := a.receiver.Stats()

	venues := make(map[string]VenueStatsView, len(ingestStats.Venues))
	for name, vs := range ingestStats.Venues {
		venues[name] = VenueStatsView{
			BytesReceived:  vs.BytesReceived,
			BytesSent:      vs.BytesSent,
			ReconnectCount: vs.ReconnectCount,
		}
	}

	view := StatsView{
		Venues: venues,
		OrderbookQueue: QueueStatsView{
			Received: ingestStats.Orderbook.Received,
			Dropped:  ingestStats.Orderbook.Dropped,
			Depth:    ingestStats.Orderbook.Depth,
			Capacity: ingestStats.Orderbook.Capacity,
		},
		TickerQueue: QueueStatsView{
			Received: ingestStats.Ticker.Received,
			Dropped:  ingestStats.Ticker.Dropped,
			Depth:    ingestStats.Ticker.Depth,
			Capacity: ingestStats.Ticker.Capacity,
		},
		Processor:     a.processor.Stats(),
		Opportunities: a.finder.Stats(),
		BestSpreads:   a.BestSpreads(),
	}

	if a.recorder != nil {
		recorderStats := a.recorder.Stats()
		view.History = &recorderStats
	}

	return view
}
