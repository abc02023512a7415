package app

import (
	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// analysisTick runs one pass of the analysis loop: compute spreads from the
// fresh quotes per symbol, reconcile the opportunity set and feed the display
// hysteresis and history sampling.
func (a *App) analysisTick() {
	var spreads []arbitrage.Spread
	tickers := make(map[string]map[string]types.Ticker)
	best := make(map[string]float64)

	for _, symbol := range a.store.Symbols() {
		best[symbol] = 0
		quotes := a.store.FreshQuotes(symbol)
		if len(quotes) < 2 {
			continue
		}
		symbolSpreads := arbitrage.CalculateSpreads(symbol, quotes)
		for i := range symbolSpreads {
			if symbolSpreads[i].SpreadPct > best[symbol] {
				best[symbol] = symbolSpreads[i].SpreadPct
			}
		}
		spreads = append(spreads, symbolSpreads...)
		tickers[symbol] = a.store.Tickers(symbol)
	}

	a.bestMu.Lock()
	a.bestSpreads = best
	a.bestMu.Unlock()

	active := a.finder.Update(spreads, tickers)
	a.engine.ObserveTick(active)

	if a.recorder != nil {
		for i := range active {
			a.recorder.Observe(active[i])
		}
	}
}

// BestSpreads returns the per-symbol best spread of the most recent analysis
// tick. Symbols without a computable spread report 0.
func (a *App) BestSpreads() map[string]float64 {
	a.bestMu.Lock()
	defer a.bestMu.Unlock()

	out := make(map[string]float64, len(a.bestSpreads))
	for symbol, pct := range a.bestSpreads {
		out[symbol] = pct
	}
	return out
}

// renderDisplay runs one display refresh: log the opportunity table rows and
// any scroller lines emitted since the previous refresh.
func (a *App) renderDisplay() {
	rows := a.engine.Snapshot()

	a.logger.Info("display-refresh",
		zap.Int("rows", len(rows)),
		zap.Uint64("throughput-last-hour", a.processor.Stats().ThroughputLastHour))

	for symbol, pct := range a.BestSpreads() {
		a.logger.Info("symbol-best-spread",
			zap.String("symbol", symbol),
			zap.Float64("best-spread-pct", pct))
	}

	for i := range rows {
		row := &rows[i]
		opp := &row.Opportunity
		fields := []zap.Field{
			zap.String("symbol", opp.Symbol),
			zap.String("venue-buy", opp.VenueBuy),
			zap.String("venue-sell", opp.VenueSell),
			zap.String("price-buy", opp.PriceBuy.String()),
			zap.String("price-sell", opp.PriceSell.String()),
			zap.Float64("spread-pct", opp.SpreadPct),
			zap.Float64("duration-s", row.DurationSeconds),
			zap.Int("occurrences-15m", row.OccurrenceCount),
		}
		if opp.HasFunding {
			fields = append(fields,
				zap.String("funding-diff-8h", opp.FundingRateDiff8h.String()),
				zap.Float64("funding-diff-annual-pct", opp.FundingRateDiffAnnualPct))
		}
		if row.Disappeared {
			fields = append(fields, zap.Bool("disappeared", true))
		}
		a.logger.Info("display-row", fields...)
	}

	for _, line := range a.scroller.Lines() {
		if !line.At.After(a.scrollerMark) {
			continue
		}
		a.logger.Info("ticker-line", zap.String("text", line.Text))
		a.scrollerMark = line.At
	}
}
