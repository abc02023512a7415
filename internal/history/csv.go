package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var csvHeader = []string{
	"timestamp", "symbol", "exchange_buy", "exchange_sell",
	"price_buy", "price_sell", "size_buy", "size_sell",
	"spread_pct", "funding_rate_diff", "funding_rate_diff_annual",
}

// CSVWriter appends records to one file per UTC day under a data directory,
// named spread_history_YYYY-MM-DD.csv. Files are opened lazily and a header
// is written on creation.
type CSVWriter struct {
	dataDir string
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	day     string
	file    *os.File
	writer  *csv.Writer
}

// CSVConfig holds CSV writer configuration.
type CSVConfig struct {
	DataDir string
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewCSVWriter creates the CSV writer, ensuring the data directory exists.
func NewCSVWriter(cfg CSVConfig) (*CSVWriter, error) {
	err := os.MkdirAll(cfg.DataDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &CSVWriter{
		dataDir: cfg.DataDir,
		logger:  cfg.Logger,
		now:     now,
	}, nil
}

// WriteRecords appends records to the current day file, rotating when the
// UTC day changes.
func (w *CSVWriter) WriteRecords(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.day {
		err := w.rotateLocked(day)
		if err != nil {
			return err
		}
	}

	for _, rec := range records {
		row := []string{
			rec.Timestamp.Format(time.RFC3339),
			rec.Symbol,
			rec.ExchangeBuy,
			rec.ExchangeSell,
			rec.PriceBuy.String(),
			rec.PriceSell.String(),
			rec.SizeBuy.String(),
			rec.SizeSell.String(),
			strconv.FormatFloat(rec.SpreadPct, 'f', -1, 64),
			rec.FundingRateDiff8h.String(),
			strconv.FormatFloat(rec.FundingRateDiffAnnualPct, 'f', -1, 64),
		}
		err := w.writer.Write(row)
		if err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

func (w *CSVWriter) rotateLocked(day string) error {
	if w.file != nil {
		w.writer.Flush()
		_ = w.file.Close()
	}

	path := filepath.Join(w.dataDir, fmt.Sprintf("spread_history_%s.csv", day))

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}

	w.day = day
	w.file = f
	w.writer = csv.NewWriter(f)

	if fresh {
		err = w.writer.Write(csvHeader)
		if err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		w.writer.Flush()
	}

	w.logger.Info("csv-history-file-opened", zap.String("path", path))
	return w.writer.Error()
}

// Close flushes and closes the open file.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	w.writer.Flush()
	err := w.file.Close()
	w.file = nil
	w.writer = nil
	return err
}
