package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/ingest"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

const (
	// batchSize caps items drained per queue per iteration so one busy queue
	// cannot starve the other.
	batchSize = 50

	// idleSleep is the pause when both queues are empty.
	idleSleep = time.Millisecond

	// throughputWindow is the sliding window for throughput reporting.
	throughputWindow = time.Hour
)

// ProcessorConfig holds processing-stage configuration.
type ProcessorConfig struct {
	Store          *Store
	OrderbookQueue *ingest.Queue[types.Quote]
	TickerQueue    *ingest.Queue[types.Ticker]
	// OnQuote, when set, is invoked after each quote is applied to the store.
	// The display scroller hangs off this hook.
	OnQuote func(types.Quote)
	Logger  *zap.Logger
	Now     func() time.Time
}

// ProcessorStats is a snapshot of the processing stage counters.
type ProcessorStats struct {
	ProcessedOrderbook uint64
	ProcessedTicker    uint64
	ProcessingErrors   uint64
	// ThroughputLastHour counts items processed inside the sliding window.
	ThroughputLastHour uint64
}

// Processor is the single consumer of the ingestion queues. It applies
// updates to the state store in arrival order.
type Processor struct {
	store          *Store
	orderbookQueue *ingest.Queue[types.Quote]
	tickerQueue    *ingest.Queue[types.Ticker]
	onQuote        func(types.Quote)
	logger         *zap.Logger
	now            func() time.Time

	processedOrderbook atomic.Uint64
	processedTicker    atomic.Uint64
	processingErrors   atomic.Uint64

	// throughput log: per-second counts, pruned at read.
	tmu        sync.Mutex
	throughput []throughputBucket

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type throughputBucket struct {
	second int64
	count  uint64
}

// NewProcessor creates a processing stage over the two ingestion queues.
func NewProcessor(cfg ProcessorConfig) *Processor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		store:          cfg.Store,
		orderbookQueue: cfg.OrderbookQueue,
		tickerQueue:    cfg.TickerQueue,
		onQuote:        cfg.OnQuote,
		logger:         cfg.Logger,
		now:            now,
	}
}

// Start launches the consumer loop. It runs until ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("processing-stage-starting")

	p.wg.Add(1)
	go p.run(loopCtx)
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("processing-stage-stopped")
			return
		default:
		}

		processed := p.drainOrderbook() + p.drainTicker()
		if processed == 0 {
			time.Sleep(idleSleep)
			continue
		}

		p.recordThroughput(processed)
	}
}

// drainOrderbook applies up to batchSize quotes to the store.
func (p *Processor) drainOrderbook() uint64 {
	var processed uint64
	for i := 0; i < batchSize; i++ {
		quote, ok := p.orderbookQueue.TryPop()
		if !ok {
			break
		}
		if !quote.Valid() {
			p.processingErrors.Add(1)
			ProcessingErrorsTotal.Inc()
			continue
		}

		p.store.ApplyQuote(quote)
		p.processedOrderbook.Add(1)
		ItemsProcessedTotal.WithLabelValues("orderbook").Inc()
		processed++

		if p.onQuote != nil {
			p.onQuote(quote)
		}
	}
	return processed
}

// drainTicker applies up to batchSize funding updates to the store.
func (p *Processor) drainTicker() uint64 {
	var processed uint64
	for i := 0; i < batchSize; i++ {
		ticker, ok := p.tickerQueue.TryPop()
		if !ok {
			break
		}

		p.store.ApplyTicker(ticker)
		p.processedTicker.Add(1)
		ItemsProcessedTotal.WithLabelValues("ticker").Inc()
		processed++
	}
	return processed
}

// recordThroughput adds processed items to the current one-second bucket.
func (p *Processor) recordThroughput(n uint64) {
	second := p.now().Unix()

	p.tmu.Lock()
	defer p.tmu.Unlock()

	if len(p.throughput) > 0 && p.throughput[len(p.throughput)-1].second == second {
		p.throughput[len(p.throughput)-1].count += n
		return
	}
	p.throughput = append(p.throughput, throughputBucket{second: second, count: n})
}

// Stats returns the processing counters, pruning the throughput log to the
// sliding window.
func (p *Processor) Stats() ProcessorStats {
	cutoff := p.now().Add(-throughputWindow).Unix()

	p.tmu.Lock()
	firstFresh := 0
	for firstFresh < len(p.throughput) && p.throughput[firstFresh].second <= cutoff {
		firstFresh++
	}
	if firstFresh > 0 {
		p.throughput = append(p.throughput[:0], p.throughput[firstFresh:]...)
	}
	var windowTotal uint64
	for _, b := range p.throughput {
		windowTotal += b.count
	}
	p.tmu.Unlock()

	return ProcessorStats{
		ProcessedOrderbook: p.processedOrderbook.Load(),
		ProcessedTicker:    p.processedTicker.Load(),
		ProcessingErrors:   p.processingErrors.Load(),
		ThroughputLastHour: windowTotal,
	}
}

// Close stops the consumer loop and waits for it to drain.
func (p *Processor) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
