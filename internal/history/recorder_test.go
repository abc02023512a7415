package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

type fakeStore struct {
	mu      sync.Mutex
	batches [][]Record
	failing bool
}

func (s *fakeStore) WriteBatch(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store unavailable")
	}
	batch := make([]Record, len(records))
	copy(batch, records)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) written() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []Record
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func testOpportunity(t *testing.T, symbol string, spreadPct float64, priceBuy string) arbitrage.Opportunity {
	t.Helper()
	return arbitrage.Opportunity{
		Symbol:    symbol,
		VenueBuy:  "lighter",
		VenueSell: "extended",
		PriceBuy:  dec(t, priceBuy),
		PriceSell: dec(t, priceBuy).Add(dec(t, "10")),
		SizeBuy:   dec(t, "1.5"),
		SizeSell:  dec(t, "2.0"),
		SpreadPct: spreadPct,
	}
}

func newTestRecorder(t *testing.T, clock *fakeClock, store Store, strategy string) *Recorder {
	t.Helper()
	return NewRecorder(RecorderConfig{
		Store:          store,
		SampleInterval: 60 * time.Second,
		Strategy:       strategy,
		BatchSize:      10,
		BatchTimeout:   60 * time.Second,
		QueueMaxSize:   500,
		Logger:         zaptest.NewLogger(t),
		Now:            clock.now,
	})
}

// drainIntents moves queued observations into the accumulators without
// running the writer goroutine.
func drainIntents(r *Recorder) {
	for {
		select {
		case rec := <-r.intents:
			r.accumulate(rec)
		default:
			return
		}
	}
}

func TestRecorder_MaxStrategyPicksLargestSpread(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(10 * time.Second)}
	store := &fakeStore{}
	r := newTestRecorder(t, clock, store, StrategyMax)

	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.2, "60000"))
	clock.advance(20 * time.Second) // t=30
	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.5, "60100"))
	clock.advance(20 * time.Second) // t=50
	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.3, "60050"))
	drainIntents(r)

	clock.advance(20 * time.Second) // t=70, bucket complete
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	written := store.written()
	if len(written) != 1 {
		t.Fatalf("expected 1 reduced row, got %d", len(written))
	}
	rec := written[0]
	if !rec.Timestamp.Equal(base) {
		t.Errorf("expected bucket start %v, got %v", base, rec.Timestamp)
	}
	if rec.SpreadPct != 0.5 {
		t.Errorf("expected max spread 0.5, got %v", rec.SpreadPct)
	}
	if !rec.PriceBuy.Equal(dec(t, "60100")) {
		t.Errorf("expected winning row price 60100, got %s", rec.PriceBuy)
	}
}

func TestRecorder_MeanStrategyAverages(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(5 * time.Second)}
	store := &fakeStore{}
	r := newTestRecorder(t, clock, store, StrategyMean)

	r.Observe(testOpportunity(t, "ETH-USDC-PERP", 0.2, "3000"))
	r.Observe(testOpportunity(t, "ETH-USDC-PERP", 0.4, "3100"))
	drainIntents(r)

	clock.advance(60 * time.Second)
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	written := store.written()
	if len(written) != 1 {
		t.Fatalf("expected 1 reduced row, got %d", len(written))
	}
	rec := written[0]
	if rec.SpreadPct != 0.3 {
		t.Errorf("expected mean spread 0.3, got %v", rec.SpreadPct)
	}
	if !rec.PriceBuy.Equal(dec(t, "3050")) {
		t.Errorf("expected mean price 3050, got %s", rec.PriceBuy)
	}
	if rec.ExchangeBuy != "lighter" {
		t.Errorf("expected categorical field from latest entry, got %q", rec.ExchangeBuy)
	}
}

func TestRecorder_MeanStrategyRederivesAnnualFunding(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(5 * time.Second)}
	store := &fakeStore{}
	r := newTestRecorder(t, clock, store, StrategyMean)

	first := testOpportunity(t, "BTC-USDC-PERP", 0.2, "60000")
	first.FundingRateDiff8h = dec(t, "0.0001")
	first.FundingRateDiffAnnualPct = types.AnnualizedFundingPct(first.FundingRateDiff8h)
	second := testOpportunity(t, "BTC-USDC-PERP", 0.4, "60100")
	second.FundingRateDiff8h = dec(t, "0.0003")
	second.FundingRateDiffAnnualPct = types.AnnualizedFundingPct(second.FundingRateDiff8h)

	r.Observe(first)
	r.Observe(second)
	drainIntents(r)

	clock.advance(60 * time.Second)
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	written := store.written()
	if len(written) != 1 {
		t.Fatalf("expected 1 reduced row, got %d", len(written))
	}
	rec := written[0]
	if !rec.FundingRateDiff8h.Equal(dec(t, "0.0002")) {
		t.Fatalf("expected mean 8h diff 0.0002, got %s", rec.FundingRateDiff8h)
	}
	want := types.AnnualizedFundingPct(rec.FundingRateDiff8h)
	if rec.FundingRateDiffAnnualPct != want {
		t.Errorf("expected annual pct derived from averaged 8h diff %v, got %v",
			want, rec.FundingRateDiffAnnualPct)
	}
}

func TestRecorder_LatestStrategyKeepsLastEntry(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(5 * time.Second)}
	store := &fakeStore{}
	r := newTestRecorder(t, clock, store, StrategyLatest)

	r.Observe(testOpportunity(t, "SOL-USDC-PERP", 0.9, "150"))
	r.Observe(testOpportunity(t, "SOL-USDC-PERP", 0.1, "151"))
	drainIntents(r)

	clock.advance(60 * time.Second)
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	written := store.written()
	if len(written) != 1 {
		t.Fatalf("expected 1 reduced row, got %d", len(written))
	}
	if written[0].SpreadPct != 0.1 {
		t.Errorf("expected latest spread 0.1, got %v", written[0].SpreadPct)
	}
}

func TestRecorder_CurrentBucketNotFlushed(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(10 * time.Second)}
	store := &fakeStore{}
	r := newTestRecorder(t, clock, store, StrategyMax)

	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.2, "60000"))
	drainIntents(r)

	clock.advance(30 * time.Second) // t=40, same bucket
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	if len(store.written()) != 0 {
		t.Fatalf("expected no rows while bucket is open, got %d", len(store.written()))
	}

	stats := r.Stats()
	if stats.OpenBuckets != 1 {
		t.Errorf("expected 1 open bucket, got %d", stats.OpenBuckets)
	}
}

func TestRecorder_SeparateBucketsPerSymbol(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(10 * time.Second)}
	store := &fakeStore{}
	r := newTestRecorder(t, clock, store, StrategyMax)

	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.2, "60000"))
	r.Observe(testOpportunity(t, "ETH-USDC-PERP", 0.3, "3000"))
	drainIntents(r)

	clock.advance(60 * time.Second)
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	if len(store.written()) != 2 {
		t.Fatalf("expected one row per symbol, got %d", len(store.written()))
	}
}

func TestRecorder_QueueOverflowDropsNewest(t *testing.T) {
	clock := &fakeClock{current: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := &fakeStore{}
	r := NewRecorder(RecorderConfig{
		Store:          store,
		SampleInterval: 60 * time.Second,
		Strategy:       StrategyMax,
		BatchSize:      10,
		BatchTimeout:   60 * time.Second,
		QueueMaxSize:   2,
		Logger:         zaptest.NewLogger(t),
		Now:            clock.now,
	})

	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.1, "60000"))
	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.2, "60001"))
	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.9, "60002")) // dropped

	stats := r.Stats()
	if stats.RecordsDropped != 1 {
		t.Fatalf("expected 1 dropped observation, got %d", stats.RecordsDropped)
	}

	drainIntents(r)
	clock.advance(120 * time.Second)
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	written := store.written()
	if len(written) != 1 {
		t.Fatalf("expected 1 row, got %d", len(written))
	}
	if written[0].SpreadPct != 0.2 {
		t.Errorf("expected dropped observation excluded, max 0.2, got %v", written[0].SpreadPct)
	}
}

func TestRecorder_FailedBatchRetained(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(10 * time.Second)}
	store := &fakeStore{failing: true}
	r := newTestRecorder(t, clock, store, StrategyMax)

	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.2, "60000"))
	drainIntents(r)

	clock.advance(60 * time.Second)
	r.flushCompleted(clock.now())
	r.writeBatchIfDue(true)

	stats := r.Stats()
	if stats.WriteErrors != 1 {
		t.Fatalf("expected 1 write error, got %d", stats.WriteErrors)
	}
	if stats.PendingBatch != 1 {
		t.Fatalf("expected failed batch retained, pending %d", stats.PendingBatch)
	}

	store.mu.Lock()
	store.failing = false
	store.mu.Unlock()

	r.writeBatchIfDue(true)
	if len(store.written()) != 1 {
		t.Fatalf("expected retained batch written on retry, got %d rows", len(store.written()))
	}
}

func TestRecorder_RepeatedWriteFailuresBoundRetainedBatch(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(10 * time.Second)}
	store := &fakeStore{failing: true}
	r := NewRecorder(RecorderConfig{
		Store:          store,
		SampleInterval: 60 * time.Second,
		Strategy:       StrategyMax,
		BatchSize:      1,
		BatchTimeout:   60 * time.Second,
		QueueMaxSize:   3,
		Logger:         zaptest.NewLogger(t),
		Now:            clock.now,
	})

	// Each cycle completes one bucket per symbol and fails the write.
	symbols := []string{"AAA-USDC-PERP", "BBB-USDC-PERP", "CCC-USDC-PERP", "DDD-USDC-PERP", "EEE-USDC-PERP"}
	for _, symbol := range symbols {
		r.Observe(testOpportunity(t, symbol, 0.2, "100"))
		drainIntents(r)
		clock.advance(60 * time.Second)
		r.flushCompleted(clock.now())
		r.writeBatchIfDue(true)
	}

	stats := r.Stats()
	if stats.PendingBatch != 3 {
		t.Fatalf("expected retained batch capped at queue max 3, pending %d", stats.PendingBatch)
	}
	if stats.RecordsDropped != 2 {
		t.Fatalf("expected 2 rows dropped past the cap, got %d", stats.RecordsDropped)
	}
	if stats.WriteErrors != uint64(len(symbols)) {
		t.Fatalf("expected %d write errors, got %d", len(symbols), stats.WriteErrors)
	}

	store.mu.Lock()
	store.failing = false
	store.mu.Unlock()

	r.writeBatchIfDue(true)
	written := store.written()
	if len(written) != 3 {
		t.Fatalf("expected 3 retained rows written on retry, got %d", len(written))
	}
	// The oldest rows survive; the newest past the cap were discarded.
	if written[0].Symbol != "AAA-USDC-PERP" || written[2].Symbol != "CCC-USDC-PERP" {
		t.Errorf("expected oldest rows retained, got %s..%s", written[0].Symbol, written[2].Symbol)
	}
}

func TestRecorder_CloseFlushesOpenBuckets(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{current: base.Add(10 * time.Second)}
	store := &fakeStore{}
	r := newTestRecorder(t, clock, store, StrategyMax)

	r.Start(context.Background())
	r.Observe(testOpportunity(t, "BTC-USDC-PERP", 0.2, "60000"))
	r.Close()

	written := store.written()
	if len(written) != 1 {
		t.Fatalf("expected open bucket flushed on close, got %d rows", len(written))
	}
	if written[0].SpreadPct != 0.2 {
		t.Errorf("expected spread 0.2, got %v", written[0].SpreadPct)
	}
}
