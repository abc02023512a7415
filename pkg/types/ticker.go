package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingPeriodsPerYear is the number of 8-hour funding intervals in a year
// (3 per day x 365). Annualized funding figures are always derived from the
// authoritative 8-hour rate with this constant.
const FundingPeriodsPerYear = 1095

// Ticker carries the funding-rate state for one symbol on one venue.
// FundingRate8h is a signed dimensionless fraction (0.0001 = 0.01% per 8h).
type Ticker struct {
	Venue         string
	Symbol        string
	FundingRate8h decimal.Decimal
	WallTime      time.Time
}

// AnnualizedFundingPct converts an 8-hour funding rate (or differential) to
// an annualized percentage: rate8h x 1095 x 100. The result is a display
// quantity and never re-enters authoritative state.
func AnnualizedFundingPct(rate8h decimal.Decimal) float64 {
	pct, _ := rate8h.Mul(decimal.NewFromInt(FundingPeriodsPerYear)).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
