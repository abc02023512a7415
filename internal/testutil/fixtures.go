package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mselser95/perp-arb-monitor/internal/venue"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// Dec parses a decimal literal, panicking on malformed input. Test-only.
func Dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// CreateTestQuote creates a validated quote for one venue and canonical
// symbol with the given top-of-book prices.
func CreateTestQuote(venueName, symbol, bid, ask string) types.Quote {
	return types.Quote{
		Venue:    venueName,
		Symbol:   symbol,
		BidPrice: Dec(bid),
		BidSize:  Dec("1.5"),
		AskPrice: Dec(ask),
		AskSize:  Dec("2.0"),
		WallTime: time.Now(),
	}
}

// CreateTestTicker creates a funding-rate update for one venue and canonical
// symbol.
func CreateTestTicker(venueName, symbol, fundingRate8h string) types.Ticker {
	return types.Ticker{
		Venue:         venueName,
		Symbol:        symbol,
		FundingRate8h: Dec(fundingRate8h),
		WallTime:      time.Now(),
	}
}

// CreateTestTickerPayload creates an adapter funding-rate payload carrying
// its native symbol.
func CreateTestTickerPayload(nativeSymbol, fundingRate8h string) venue.TickerPayload {
	return venue.TickerPayload{
		Symbol:        nativeSymbol,
		FundingRate8h: Dec(fundingRate8h),
		WallTime:      time.Now(),
	}
}

// CreateQuotePayload creates an adapter quote payload without a symbol;
// callers choose which event shape carries the symbol.
func CreateQuotePayload(bid, bidSize, ask, askSize string) venue.QuotePayload {
	return venue.QuotePayload{
		BidPrice: Dec(bid),
		BidSize:  Dec(bidSize),
		AskPrice: Dec(ask),
		AskSize:  Dec(askSize),
		WallTime: time.Now(),
	}
}
