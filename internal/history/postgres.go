package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS spread_history_sampled (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL,
	symbol TEXT NOT NULL,
	exchange_buy TEXT NOT NULL,
	exchange_sell TEXT NOT NULL,
	price_buy NUMERIC NOT NULL,
	price_sell NUMERIC NOT NULL,
	size_buy NUMERIC NOT NULL,
	size_sell NUMERIC NOT NULL,
	spread_pct DOUBLE PRECISION NOT NULL,
	funding_rate_diff NUMERIC NOT NULL,
	funding_rate_diff_annual DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spread_history_symbol_ts ON spread_history_sampled (symbol, timestamp);
CREATE INDEX IF NOT EXISTS idx_spread_history_ts ON spread_history_sampled (timestamp);
`

const insertRecord = `
	INSERT INTO spread_history_sampled (
		timestamp, symbol, exchange_buy, exchange_sell,
		price_buy, price_sell, size_buy, size_sell,
		spread_pct, funding_rate_diff, funding_rate_diff_annual
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)
`

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	DSN    string
	Logger *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and ensures the history schema.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("postgres-history-store-connected")

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// WriteBatch inserts all records in a single transaction.
func (p *PostgresStore) WriteBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	for _, rec := range records {
		_, err = tx.ExecContext(ctx, insertRecord,
			rec.Timestamp,
			rec.Symbol,
			rec.ExchangeBuy,
			rec.ExchangeSell,
			rec.PriceBuy.String(),
			rec.PriceSell.String(),
			rec.SizeBuy.String(),
			rec.SizeSell.String(),
			rec.SpreadPct,
			rec.FundingRateDiff8h.String(),
			rec.FundingRateDiffAnnualPct,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert record: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	p.logger.Debug("history-batch-written", zap.Int("records", len(records)))

	return nil
}

// DB exposes the underlying handle for the read path.
func (p *PostgresStore) DB() *sql.DB {
	return p.db
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-history-store")
	return p.db.Close()
}
