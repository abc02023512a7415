package history

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleStore implements Store by logging batches. Used when no database
// is configured.
type ConsoleStore struct {
	logger *zap.Logger
}

// NewConsoleStore creates a console store.
func NewConsoleStore(logger *zap.Logger) *ConsoleStore {
	logger.Info("console-history-store-initialized")
	return &ConsoleStore{logger: logger}
}

// WriteBatch logs each record at info level.
func (c *ConsoleStore) WriteBatch(_ context.Context, records []Record) error {
	for _, rec := range records {
		c.logger.Info("spread-sample",
			zap.Time("bucket", rec.Timestamp),
			zap.String("symbol", rec.Symbol),
			zap.String("exchange-buy", rec.ExchangeBuy),
			zap.String("exchange-sell", rec.ExchangeSell),
			zap.Float64("spread-pct", rec.SpreadPct),
			zap.String("funding-rate-diff", rec.FundingRateDiff8h.String()))
	}
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStore) Close() error {
	c.logger.Info("closing-console-history-store")
	return nil
}
