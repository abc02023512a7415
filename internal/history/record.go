// Package history persists sampled spread rows for long-term analysis:
// wall-clock bucketing with a pluggable reduction strategy, batched durable
// writes, optional per-day CSV archival and retention housekeeping.
package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one sampled spread row, the persisted schema of
// spread_history_sampled.
type Record struct {
	// Timestamp is the bucket start, UTC.
	Timestamp    time.Time
	Symbol       string
	ExchangeBuy  string
	ExchangeSell string
	PriceBuy     decimal.Decimal
	PriceSell    decimal.Decimal
	SizeBuy      decimal.Decimal
	SizeSell     decimal.Decimal
	SpreadPct    float64
	// FundingRateDiff8h is the signed 8h differential (sell minus buy).
	FundingRateDiff8h decimal.Decimal
	// FundingRateDiffAnnualPct is derived from the 8h value at write time.
	FundingRateDiffAnnualPct float64
}

// Store persists record batches.
type Store interface {
	// WriteBatch durably writes a batch of records.
	WriteBatch(ctx context.Context, records []Record) error

	// Close closes the store.
	Close() error
}
