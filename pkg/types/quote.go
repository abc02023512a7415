package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a validated top-of-book snapshot for one symbol on one venue.
// Prices and sizes are fixed-point decimals; they are only rendered to
// float64 at the display boundary.
type Quote struct {
	Venue    string
	Symbol   string
	BidPrice decimal.Decimal
	BidSize  decimal.Decimal
	AskPrice decimal.Decimal
	AskSize  decimal.Decimal
	WallTime time.Time
}

// Valid reports whether the quote satisfies the top-of-book invariants:
// both prices positive, both sizes positive, bid strictly below ask.
func (q *Quote) Valid() bool {
	if q == nil {
		return false
	}
	if q.BidPrice.Sign() <= 0 || q.AskPrice.Sign() <= 0 {
		return false
	}
	if q.BidSize.Sign() <= 0 || q.AskSize.Sign() <= 0 {
		return false
	}
	return q.BidPrice.LessThan(q.AskPrice)
}

// Mid returns the midpoint price as a float64 for display purposes only.
func (q *Quote) Mid() float64 {
	mid, _ := q.BidPrice.Add(q.AskPrice).Div(decimal.NewFromInt(2)).Float64()
	return mid
}
