package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap/zaptest"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	return &PostgresStore{db: db, logger: zaptest.NewLogger(t)}, mock
}

func testRecord(t *testing.T) Record {
	t.Helper()
	return Record{
		Timestamp:                time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Symbol:                   "BTC-USDC-PERP",
		ExchangeBuy:              "lighter",
		ExchangeSell:             "extended",
		PriceBuy:                 dec(t, "60010"),
		PriceSell:                dec(t, "60050"),
		SizeBuy:                  dec(t, "1.5"),
		SizeSell:                 dec(t, "2.0"),
		SpreadPct:                0.0666,
		FundingRateDiff8h:        dec(t, "0.0002"),
		FundingRateDiffAnnualPct: 21.9,
	}
}

func TestPostgresStore_WriteBatch(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO spread_history_sampled").
		WithArgs(
			time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			"BTC-USDC-PERP", "lighter", "extended",
			"60010", "60050", "1.5", "2",
			0.0666, "0.0002", 21.9,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.WriteBatch(context.Background(), []Record{testRecord(t)})
	if err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_WriteBatchEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	err := store.WriteBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_WriteBatchRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	defer store.db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO spread_history_sampled").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := store.WriteBatch(context.Background(), []Record{testRecord(t)})
	if err == nil {
		t.Fatal("expected insert error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_Close(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectClose()

	err := store.Close()
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
