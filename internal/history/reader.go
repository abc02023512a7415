package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const selectColumns = `
	timestamp, symbol, exchange_buy, exchange_sell,
	price_buy, price_sell, size_buy, size_sell,
	spread_pct, funding_rate_diff, funding_rate_diff_annual
`

// Reader answers queries against the sampled history table.
type Reader struct {
	db *sql.DB
}

// NewReader creates a reader over an open database handle.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Recent returns the newest rows across all symbols, newest first.
func (r *Reader) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM spread_history_sampled ORDER BY timestamp DESC LIMIT $1",
		selectColumns)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// BySymbol returns rows for one symbol since a point in time, newest first.
func (r *Reader) BySymbol(ctx context.Context, symbol string, since time.Time, limit int) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM spread_history_sampled WHERE symbol = $1 AND timestamp >= $2 ORDER BY timestamp DESC LIMIT $3",
		selectColumns)

	rows, err := r.db.QueryContext(ctx, query, symbol, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query symbol history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var priceBuy, priceSell, sizeBuy, sizeSell, fundingDiff string

		err := rows.Scan(
			&rec.Timestamp,
			&rec.Symbol,
			&rec.ExchangeBuy,
			&rec.ExchangeSell,
			&priceBuy,
			&priceSell,
			&sizeBuy,
			&sizeSell,
			&rec.SpreadPct,
			&fundingDiff,
			&rec.FundingRateDiffAnnualPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.PriceBuy, err = decimal.NewFromString(priceBuy)
		if err != nil {
			return nil, fmt.Errorf("parse price_buy: %w", err)
		}
		rec.PriceSell, err = decimal.NewFromString(priceSell)
		if err != nil {
			return nil, fmt.Errorf("parse price_sell: %w", err)
		}
		rec.SizeBuy, err = decimal.NewFromString(sizeBuy)
		if err != nil {
			return nil, fmt.Errorf("parse size_buy: %w", err)
		}
		rec.SizeSell, err = decimal.NewFromString(sizeSell)
		if err != nil {
			return nil, fmt.Errorf("parse size_sell: %w", err)
		}
		rec.FundingRateDiff8h, err = decimal.NewFromString(fundingDiff)
		if err != nil {
			return nil, fmt.Errorf("parse funding_rate_diff: %w", err)
		}

		records = append(records, rec)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
