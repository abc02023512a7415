package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// Reduction strategies.
const (
	StrategyMax    = "max"
	StrategyMean   = "mean"
	StrategyLatest = "latest"
)

// RecorderConfig holds history recorder configuration.
type RecorderConfig struct {
	Store          Store
	CSV            *CSVWriter // optional parallel archival
	SampleInterval time.Duration
	Strategy       string
	BatchSize      int
	BatchTimeout   time.Duration
	QueueMaxSize   int
	Logger         *zap.Logger
	Now            func() time.Time
}

// RecorderStats is a snapshot of the recorder's counters.
type RecorderStats struct {
	RecordsWritten uint64
	RecordsDropped uint64
	WriteErrors    uint64
	OpenBuckets    int
	PendingBatch   int
}

// Recorder samples opportunity observations into wall-clock buckets and
// writes one reduced row per (symbol, bucket) in durable batches. Observe is
// non-blocking; overflow discards the newest intent because older
// accumulator state already integrates recent data.
type Recorder struct {
	store          Store
	csv            *CSVWriter
	sampleInterval time.Duration
	strategy       string
	batchSize      int
	batchTimeout   time.Duration
	queueMaxSize   int
	logger         *zap.Logger
	now            func() time.Time

	intents chan Record

	mu          sync.Mutex
	accums      map[accumKey]*accumulator
	batch       []Record
	batchOpened time.Time

	written     atomic.Uint64
	dropped     atomic.Uint64
	writeErrors atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type accumKey struct {
	symbol string
	bucket int64
}

// NewRecorder creates a history recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.QueueMaxSize <= 0 {
		cfg.QueueMaxSize = 500
	}
	return &Recorder{
		store:          cfg.Store,
		csv:            cfg.CSV,
		sampleInterval: cfg.SampleInterval,
		strategy:       cfg.Strategy,
		batchSize:      cfg.BatchSize,
		batchTimeout:   cfg.BatchTimeout,
		queueMaxSize:   cfg.QueueMaxSize,
		logger:         cfg.Logger,
		now:            now,
		intents:        make(chan Record, cfg.QueueMaxSize),
		accums:         make(map[accumKey]*accumulator),
	}
}

// Start launches the writer goroutine.
func (r *Recorder) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.logger.Info("history-recorder-starting",
		zap.Duration("sample-interval", r.sampleInterval),
		zap.String("strategy", r.strategy))

	r.wg.Add(1)
	go r.run(loopCtx)
}

// Observe queues one opportunity observation. Never blocks: on a full queue
// the new record is discarded and counted.
func (r *Recorder) Observe(opp arbitrage.Opportunity) {
	rec := r.recordFrom(opp)

	select {
	case r.intents <- rec:
	default:
		r.dropped.Add(1)
		RecordsDroppedTotal.Inc()
	}
}

// recordFrom stamps an opportunity observation with its wall-clock bucket.
func (r *Recorder) recordFrom(opp arbitrage.Opportunity) Record {
	return Record{
		Timestamp:                r.bucketStart(r.now()),
		Symbol:                   opp.Symbol,
		ExchangeBuy:              opp.VenueBuy,
		ExchangeSell:             opp.VenueSell,
		PriceBuy:                 opp.PriceBuy,
		PriceSell:                opp.PriceSell,
		SizeBuy:                  opp.SizeBuy,
		SizeSell:                 opp.SizeSell,
		SpreadPct:                opp.SpreadPct,
		FundingRateDiff8h:        opp.FundingRateDiff8h,
		FundingRateDiffAnnualPct: opp.FundingRateDiffAnnualPct,
	}
}

// bucketStart floors t to the sampling interval, UTC.
func (r *Recorder) bucketStart(t time.Time) time.Time {
	interval := int64(r.sampleInterval / time.Second)
	if interval <= 0 {
		interval = 60
	}
	return time.Unix(t.Unix()/interval*interval, 0).UTC()
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drainAndFlush()
			r.logger.Info("history-recorder-stopped")
			return
		case rec := <-r.intents:
			r.accumulate(rec)
		case <-ticker.C:
			r.flushCompleted(r.now())
			r.writeBatchIfDue(false)
		}
	}
}

// accumulate folds one record into its (symbol, bucket) accumulator.
func (r *Recorder) accumulate(rec Record) {
	key := accumKey{symbol: rec.Symbol, bucket: rec.Timestamp.Unix()}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accums[key]
	if !ok {
		acc = &accumulator{}
		r.accums[key] = acc
	}
	acc.add(rec)
}

// flushCompleted reduces every bucket strictly before the current one and
// moves the rows into the pending batch.
func (r *Recorder) flushCompleted(now time.Time) {
	currentBucket := r.bucketStart(now).Unix()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, acc := range r.accums {
		if key.bucket >= currentBucket {
			continue
		}
		r.appendToBatchLocked(acc.reduce(r.strategy), now)
		delete(r.accums, key)
	}
}

// flushAll reduces every bucket, completed or not. Shutdown path only.
func (r *Recorder) flushAll(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, acc := range r.accums {
		r.appendToBatchLocked(acc.reduce(r.strategy), now)
		delete(r.accums, key)
	}
}

func (r *Recorder) appendToBatchLocked(rec Record, now time.Time) {
	if len(r.batch) == 0 {
		r.batchOpened = now
	}
	r.batch = append(r.batch, rec)
}

// writeBatchIfDue writes the pending batch when it is full, its timeout has
// elapsed, or force is set. On write failure the batch is retained for the
// next attempt.
func (r *Recorder) writeBatchIfDue(force bool) {
	now := r.now()

	r.mu.Lock()
	due := force ||
		len(r.batch) >= r.batchSize ||
		(len(r.batch) > 0 && now.Sub(r.batchOpened) >= r.batchTimeout)
	if !due || len(r.batch) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.batch
	r.batch = nil
	r.mu.Unlock()

	ctx, cancelWrite := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelWrite()

	err := r.store.WriteBatch(ctx, batch)
	if err != nil {
		r.writeErrors.Add(1)
		WriteErrorsTotal.Inc()
		r.logger.Error("history-batch-write-failed",
			zap.Int("records", len(batch)),
			zap.Error(err))

		// Retain the failed batch ahead of anything accumulated meanwhile,
		// bounded by the queue cap. Past the cap the newest rows are
		// discarded and counted, the same discipline as the intent queue.
		r.mu.Lock()
		retained := append(batch, r.batch...)
		if len(retained) > r.queueMaxSize {
			over := len(retained) - r.queueMaxSize
			retained = retained[:r.queueMaxSize]
			r.dropped.Add(uint64(over))
			RecordsDroppedTotal.Add(float64(over))
		}
		r.batch = retained
		if r.batchOpened.IsZero() || r.batchOpened.After(now) {
			r.batchOpened = now
		}
		r.mu.Unlock()
		return
	}

	if r.csv != nil {
		err = r.csv.WriteRecords(batch)
		if err != nil {
			r.logger.Warn("history-csv-write-failed", zap.Error(err))
		}
	}

	r.written.Add(uint64(len(batch)))
	RecordsWrittenTotal.Add(float64(len(batch)))
	BatchFlushesTotal.Inc()
}

// drainAndFlush empties the intent queue, reduces everything and writes the
// final batch. Called on shutdown.
func (r *Recorder) drainAndFlush() {
	for {
		select {
		case rec := <-r.intents:
			r.accumulate(rec)
		default:
			r.flushAll(r.now())
			r.writeBatchIfDue(true)
			return
		}
	}
}

// Stats returns the recorder's counters.
func (r *Recorder) Stats() RecorderStats {
	r.mu.Lock()
	openBuckets := len(r.accums)
	pendingBatch := len(r.batch)
	r.mu.Unlock()

	return RecorderStats{
		RecordsWritten: r.written.Load(),
		RecordsDropped: r.dropped.Load(),
		WriteErrors:    r.writeErrors.Load(),
		OpenBuckets:    openBuckets,
		PendingBatch:   pendingBatch,
	}
}

// Close stops the writer, flushing all pending state first.
func (r *Recorder) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// accumulator folds records of one (symbol, bucket) under all strategies;
// reduce picks the configured one.
type accumulator struct {
	count int

	best   Record // largest spread_pct
	latest Record

	sumPriceBuy    decimal.Decimal
	sumPriceSell   decimal.Decimal
	sumSizeBuy     decimal.Decimal
	sumSizeSell    decimal.Decimal
	sumSpreadPct   float64
	sumFundingDiff decimal.Decimal
}

func (a *accumulator) add(rec Record) {
	if a.count == 0 || rec.SpreadPct > a.best.SpreadPct {
		a.best = rec
	}
	a.latest = rec

	a.sumPriceBuy = a.sumPriceBuy.Add(rec.PriceBuy)
	a.sumPriceSell = a.sumPriceSell.Add(rec.PriceSell)
	a.sumSizeBuy = a.sumSizeBuy.Add(rec.SizeBuy)
	a.sumSizeSell = a.sumSizeSell.Add(rec.SizeSell)
	a.sumSpreadPct += rec.SpreadPct
	a.sumFundingDiff = a.sumFundingDiff.Add(rec.FundingRateDiff8h)

	a.count++
}

func (a *accumulator) reduce(strategy string) Record {
	switch strategy {
	case StrategyMean:
		n := decimal.NewFromInt(int64(a.count))
		rec := a.latest // categorical fields from the last entry
		rec.PriceBuy = a.sumPriceBuy.Div(n)
		rec.PriceSell = a.sumPriceSell.Div(n)
		rec.SizeBuy = a.sumSizeBuy.Div(n)
		rec.SizeSell = a.sumSizeSell.Div(n)
		rec.SpreadPct = a.sumSpreadPct / float64(a.count)
		rec.FundingRateDiff8h = a.sumFundingDiff.Div(n)
		// The annual figure is always derived from the 8h value, so a mean
		// row re-derives it from the averaged differential.
		rec.FundingRateDiffAnnualPct = types.AnnualizedFundingPct(rec.FundingRateDiff8h)
		return rec
	case StrategyLatest:
		return a.latest
	default: // StrategyMax
		return a.best
	}
}
