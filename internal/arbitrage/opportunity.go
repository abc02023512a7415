package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// Opportunity is a live cross-venue arbitrage: buy at VenueBuy, sell at
// VenueSell. Funding rates are attached when the venues have published them.
type Opportunity struct {
	ID        string
	Symbol    string
	VenueBuy  string
	VenueSell string

	PriceBuy  decimal.Decimal
	PriceSell decimal.Decimal
	SizeBuy   decimal.Decimal
	SizeSell  decimal.Decimal
	SpreadPct float64

	FundingRateBuy  decimal.Decimal
	FundingRateSell decimal.Decimal
	HasFunding      bool
	// FundingRateDiff8h = sell rate - buy rate, signed. The annual figure is
	// derived from this authoritative 8h value, never the other way around.
	FundingRateDiff8h        decimal.Decimal
	FundingRateDiffAnnualPct float64

	FirstSeen time.Time
	LastSeen  time.Time
}

// Key identifies this opportunity: symbol plus directed venue pair.
func (o *Opportunity) Key() string {
	return o.Symbol + "_" + o.VenueBuy + "_" + o.VenueSell
}

// attachFunding sets the funding fields from the two venues' tickers, when
// both are present.
func (o *Opportunity) attachFunding(tickers map[string]types.Ticker) {
	buy, okBuy := tickers[o.VenueBuy]
	sell, okSell := tickers[o.VenueSell]
	if !okBuy || !okSell {
		o.HasFunding = false
		return
	}

	o.FundingRateBuy = buy.FundingRate8h
	o.FundingRateSell = sell.FundingRate8h
	o.FundingRateDiff8h = sell.FundingRate8h.Sub(buy.FundingRate8h)
	o.FundingRateDiffAnnualPct = types.AnnualizedFundingPct(o.FundingRateDiff8h)
	o.HasFunding = true
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf("Opportunity[%s] %s buy=%s@%s sell=%s@%s spread=%.4f%%",
		o.ID[:8], o.Symbol, o.VenueBuy, o.PriceBuy, o.VenueSell, o.PriceSell, o.SpreadPct)
}

// newOpportunity creates an opportunity from a spread at time now.
func newOpportunity(s Spread, now time.Time) *Opportunity {
	return &Opportunity{
		ID:        uuid.New().String(),
		Symbol:    s.Symbol,
		VenueBuy:  s.VenueBuy,
		VenueSell: s.VenueSell,
		PriceBuy:  s.PriceBuy,
		PriceSell: s.PriceSell,
		SizeBuy:   s.SizeBuy,
		SizeSell:  s.SizeSell,
		SpreadPct: s.SpreadPct,
		FirstSeen: now,
		LastSeen:  now,
	}
}

// refresh overwrites the market fields from a newer spread observation.
// Identity (ID, FirstSeen) is preserved.
func (o *Opportunity) refresh(s Spread, now time.Time) {
	o.PriceBuy = s.PriceBuy
	o.PriceSell = s.PriceSell
	o.SizeBuy = s.SizeBuy
	o.SizeSell = s.SizeSell
	o.SpreadPct = s.SpreadPct
	o.LastSeen = now
}
