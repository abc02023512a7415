package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var readerColumns = []string{
	"timestamp", "symbol", "exchange_buy", "exchange_sell",
	"price_buy", "price_sell", "size_buy", "size_sell",
	"spread_pct", "funding_rate_diff", "funding_rate_diff_annual",
}

func TestReader_Recent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(readerColumns).
		AddRow(ts, "BTC-USDC-PERP", "lighter", "extended",
			"60010", "60050", "1.5", "2", 0.0666, "0.0002", 21.9).
		AddRow(ts.Add(-time.Minute), "ETH-USDC-PERP", "extended", "lighter",
			"3000", "3005", "10", "8", 0.1666, "-0.0001", -10.95)

	mock.ExpectQuery("SELECT (.+) FROM spread_history_sampled ORDER BY timestamp DESC").
		WithArgs(100).
		WillReturnRows(rows)

	reader := NewReader(db)
	records, err := reader.Recent(context.Background(), 100)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Symbol != "BTC-USDC-PERP" {
		t.Errorf("unexpected first symbol %q", records[0].Symbol)
	}
	if !records[0].PriceBuy.Equal(dec(t, "60010")) {
		t.Errorf("unexpected price_buy %s", records[0].PriceBuy)
	}
	if !records[1].FundingRateDiff8h.Equal(dec(t, "-0.0001")) {
		t.Errorf("unexpected funding diff %s", records[1].FundingRateDiff8h)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReader_BySymbol(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	since := ts.Add(-time.Hour)
	rows := sqlmock.NewRows(readerColumns).
		AddRow(ts, "BTC-USDC-PERP", "lighter", "extended",
			"60010", "60050", "1.5", "2", 0.0666, "0.0002", 21.9)

	mock.ExpectQuery("SELECT (.+) FROM spread_history_sampled WHERE symbol").
		WithArgs("BTC-USDC-PERP", since, 50).
		WillReturnRows(rows)

	reader := NewReader(db)
	records, err := reader.BySymbol(context.Background(), "BTC-USDC-PERP", since, 50)
	if err != nil {
		t.Fatalf("BySymbol failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].SpreadPct != 0.0666 {
		t.Errorf("unexpected spread %v", records[0].SpreadPct)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReader_BadDecimalRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(readerColumns).
		AddRow(ts, "BTC-USDC-PERP", "lighter", "extended",
			"not-a-number", "60050", "1.5", "2", 0.0666, "0.0002", 21.9)

	mock.ExpectQuery("SELECT (.+) FROM spread_history_sampled").
		WithArgs(10).
		WillReturnRows(rows)

	reader := NewReader(db)
	_, err = reader.Recent(context.Background(), 10)
	if err == nil {
		t.Fatal("expected parse error for malformed decimal")
	}
}
