package history

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestCSVWriter_WritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	w, err := NewCSVWriter(CSVConfig{
		DataDir: dir,
		Logger:  zaptest.NewLogger(t),
		Now:     clock.now,
	})
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}

	err = w.WriteRecords([]Record{testRecord(t)})
	if err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	path := filepath.Join(dir, "spread_history_2026-03-01.csv")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected day file at %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("expected header row, got %v", rows[0])
	}
	if rows[1][1] != "BTC-USDC-PERP" {
		t.Errorf("expected symbol in row, got %v", rows[1])
	}
	if rows[1][8] != "0.0666" {
		t.Errorf("expected spread_pct 0.0666, got %q", rows[1][8])
	}
}

func TestCSVWriter_AppendsWithoutDuplicateHeader(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	w, err := NewCSVWriter(CSVConfig{
		DataDir: dir,
		Logger:  zaptest.NewLogger(t),
		Now:     clock.now,
	})
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}
	if err := w.WriteRecords([]Record{testRecord(t)}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A new writer on the same day appends to the existing file.
	w2, err := NewCSVWriter(CSVConfig{
		DataDir: dir,
		Logger:  zaptest.NewLogger(t),
		Now:     clock.now,
	})
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}
	if err := w2.WriteRecords([]Record{testRecord(t)}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "spread_history_2026-03-01.csv"))
	if err != nil {
		t.Fatalf("open day file: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}
}

func TestCSVWriter_RotatesOnDayChange(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{current: time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)}

	w, err := NewCSVWriter(CSVConfig{
		DataDir: dir,
		Logger:  zaptest.NewLogger(t),
		Now:     clock.now,
	})
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}
	if err := w.WriteRecords([]Record{testRecord(t)}); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	clock.advance(2 * time.Minute)
	if err := w.WriteRecords([]Record{testRecord(t)}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, name := range []string{"spread_history_2026-03-01.csv", "spread_history_2026-03-02.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}
}
