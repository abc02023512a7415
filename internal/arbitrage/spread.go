// Package arbitrage computes cross-venue spreads and tracks live arbitrage
// opportunities. Both components are pure over their inputs: no transport,
// no display state.
package arbitrage

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// Spread is one executable direction for one symbol: buy at VenueBuy's ask,
// sell at VenueSell's bid.
type Spread struct {
	Symbol    string
	VenueBuy  string
	VenueSell string
	PriceBuy  decimal.Decimal // ask at the buy venue
	PriceSell decimal.Decimal // bid at the sell venue
	SizeBuy   decimal.Decimal
	SizeSell  decimal.Decimal
	SpreadPct float64
}

// Key identifies the opportunity this spread feeds.
func (s Spread) Key() string {
	return s.Symbol + "_" + s.VenueBuy + "_" + s.VenueSell
}

var oneHundred = decimal.NewFromInt(100)

// CalculateSpreads tests every unordered venue pair in both directions and
// returns the executable spreads. A pair can emit zero, one or both
// directions in the same tick. Venue names are iterated in sorted order so
// the output is deterministic for a given input.
func CalculateSpreads(symbol string, quotes map[string]types.Quote) []Spread {
	if len(quotes) < 2 {
		return nil
	}

	venues := make([]string, 0, len(quotes))
	for v := range quotes {
		q := quotes[v]
		if !q.Valid() {
			continue
		}
		venues = append(venues, v)
	}
	sort.Strings(venues)

	var spreads []Spread
	for i := 0; i < len(venues); i++ {
		for j := i + 1; j < len(venues); j++ {
			a, b := quotes[venues[i]], quotes[venues[j]]

			if s, ok := direction(symbol, a, b); ok {
				spreads = append(spreads, s)
			}
			if s, ok := direction(symbol, b, a); ok {
				spreads = append(spreads, s)
			}
		}
	}
	return spreads
}

// direction emits the spread for buying at buy's ask and selling at sell's
// bid, when that is profitable before fees.
func direction(symbol string, buy, sell types.Quote) (Spread, bool) {
	if !sell.BidPrice.GreaterThan(buy.AskPrice) {
		return Spread{}, false
	}

	// Fixed-point until the final percentage render.
	pct, _ := sell.BidPrice.Sub(buy.AskPrice).Div(buy.AskPrice).Mul(oneHundred).Float64()

	return Spread{
		Symbol:    symbol,
		VenueBuy:  buy.Venue,
		VenueSell: sell.Venue,
		PriceBuy:  buy.AskPrice,
		PriceSell: sell.BidPrice,
		SizeBuy:   buy.AskSize,
		SizeSell:  sell.BidSize,
		SpreadPct: pct,
	}, true
}
