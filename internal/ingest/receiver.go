package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/venue"
	"github.com/mselser95/perp-arb-monitor/pkg/symbols"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// disconnectTimeout bounds how long Cleanup waits for each adapter.
const disconnectTimeout = 3 * time.Second

// Config holds receiver configuration.
type Config struct {
	// Symbols is the canonical watch list. Updates for other symbols are
	// dropped at the door.
	Symbols            []string
	OrderbookQueueSize int
	TickerQueueSize    int
	Logger             *zap.Logger
}

// VenueStats is the per-venue transport statistics exposed by Stats.
type VenueStats struct {
	BytesReceived  int64
	BytesSent      int64
	ReconnectCount int64
}

// Stats aggregates the receiver's queue and venue counters.
type Stats struct {
	Orderbook QueueStats
	Ticker    QueueStats
	Venues    map[string]VenueStats
}

// Receiver is the ingestion stage. It registers callbacks with venue
// adapters, normalizes native symbols to canonical form and enqueues
// validated updates with minimum work on the producing goroutine.
type Receiver struct {
	logger         *zap.Logger
	orderbookQueue *Queue[types.Quote]
	tickerQueue    *Queue[types.Ticker]
	watch          map[string]bool

	mu       sync.RWMutex
	adapters map[string]venue.Adapter
}

// New creates a receiver with its two bounded queues.
func New(cfg Config) *Receiver {
	watch := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		watch[s] = true
	}

	return &Receiver{
		logger:         cfg.Logger,
		orderbookQueue: NewQueue[types.Quote](cfg.OrderbookQueueSize),
		tickerQueue:    NewQueue[types.Ticker](cfg.TickerQueueSize),
		watch:          watch,
		adapters:       make(map[string]venue.Adapter),
	}
}

// RegisterAdapter adds a connected adapter to the receiver.
func (r *Receiver) RegisterAdapter(a venue.Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}
	r.adapters[name] = a

	return nil
}

// SubscribeAll subscribes every registered adapter to the watched symbols it
// lists, wiring the receiver's callbacks. Symbols a venue does not list are
// skipped.
func (r *Receiver) SubscribeAll() error {
	r.mu.RLock()
	adapters := make([]venue.Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	for _, a := range adapters {
		name := a.Name()
		symbolMap := a.SymbolMap()

		quoteCb := r.quoteCallback(name, symbolMap)
		tickerCb := r.tickerCallback(name, symbolMap)

		subscribed := 0
		for canonical := range r.watch {
			native, ok := symbolMap.ToNative(canonical)
			if !ok {
				r.logger.Debug("symbol-not-listed",
					zap.String("venue", name),
					zap.String("symbol", canonical))
				continue
			}

			err := a.SubscribeOrderbook(native, quoteCb)
			if err != nil {
				return fmt.Errorf("venue %s: subscribe orderbook %s: %w", name, native, err)
			}
			err = a.SubscribeTicker(native, tickerCb)
			if err != nil {
				return fmt.Errorf("venue %s: subscribe ticker %s: %w", name, native, err)
			}
			subscribed++
		}

		r.logger.Info("venue-subscriptions-registered",
			zap.String("venue", name),
			zap.Int("symbols", subscribed))
	}

	return nil
}

// quoteCallback builds the orderbook callback for one venue. The callback
// runs on the adapter's I/O goroutine and must never block: enqueue uses
// drop-oldest.
func (r *Receiver) quoteCallback(venueName string, symbolMap *symbols.Map) venue.QuoteCallback {
	return func(ev venue.QuoteEvent) {
		native := ev.Symbol()
		if native == "" {
			UpdatesDroppedTotal.WithLabelValues(venueName, "orderbook", "no_symbol").Inc()
			return
		}

		canonical, ok := symbolMap.ToCanonical(native)
		if !ok {
			UpdatesDroppedTotal.WithLabelValues(venueName, "orderbook", "unknown_symbol").Inc()
			return
		}
		if !r.watch[canonical] {
			UpdatesDroppedTotal.WithLabelValues(venueName, "orderbook", "unwatched").Inc()
			return
		}

		wallTime := ev.Payload.WallTime
		if wallTime.IsZero() {
			wallTime = time.Now()
		}

		quote := types.Quote{
			Venue:    venueName,
			Symbol:   canonical,
			BidPrice: ev.Payload.BidPrice,
			BidSize:  ev.Payload.BidSize,
			AskPrice: ev.Payload.AskPrice,
			AskSize:  ev.Payload.AskSize,
			WallTime: wallTime,
		}
		if !quote.Valid() {
			UpdatesDroppedTotal.WithLabelValues(venueName, "orderbook", "invalid").Inc()
			return
		}

		if r.orderbookQueue.Push(quote) {
			UpdatesDroppedTotal.WithLabelValues(venueName, "orderbook", "queue_full").Inc()
		}
		UpdatesReceivedTotal.WithLabelValues(venueName, "orderbook").Inc()
	}
}

// tickerCallback builds the funding-rate callback for one venue.
func (r *Receiver) tickerCallback(venueName string, symbolMap *symbols.Map) venue.TickerCallback {
	return func(ev venue.TickerEvent) {
		native := ev.Symbol()
		if native == "" {
			UpdatesDroppedTotal.WithLabelValues(venueName, "ticker", "no_symbol").Inc()
			return
		}

		canonical, ok := symbolMap.ToCanonical(native)
		if !ok {
			UpdatesDroppedTotal.WithLabelValues(venueName, "ticker", "unknown_symbol").Inc()
			return
		}
		if !r.watch[canonical] {
			UpdatesDroppedTotal.WithLabelValues(venueName, "ticker", "unwatched").Inc()
			return
		}

		wallTime := ev.Payload.WallTime
		if wallTime.IsZero() {
			wallTime = time.Now()
		}

		if r.tickerQueue.Push(types.Ticker{
			Venue:         venueName,
			Symbol:        canonical,
			FundingRate8h: ev.Payload.FundingRate8h,
			WallTime:      wallTime,
		}) {
			UpdatesDroppedTotal.WithLabelValues(venueName, "ticker", "queue_full").Inc()
		}
		UpdatesReceivedTotal.WithLabelValues(venueName, "ticker").Inc()
	}
}

// OrderbookQueue returns the bounded queue of validated quotes.
func (r *Receiver) OrderbookQueue() *Queue[types.Quote] {
	return r.orderbookQueue
}

// TickerQueue returns the bounded queue of funding-rate updates.
func (r *Receiver) TickerQueue() *Queue[types.Ticker] {
	return r.tickerQueue
}

// Adapters returns the registered adapters sorted by venue name.
func (r *Receiver) Adapters() []venue.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]venue.Adapter, 0, len(names))
	for _, name := range names {
		out = append(out, r.adapters[name])
	}
	return out
}

// Stats returns queue counters and per-venue transport statistics.
func (r *Receiver) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	venues := make(map[string]VenueStats, len(r.adapters))
	for name, a := range r.adapters {
		network := a.NetworkStats()
		reconnect := a.ReconnectStats()
		venues[name] = VenueStats{
			BytesReceived:  network.BytesReceived,
			BytesSent:      network.BytesSent,
			ReconnectCount: reconnect.ReconnectCount,
		}
	}

	orderbookStats := r.orderbookQueue.Stats()
	tickerStats := r.tickerQueue.Stats()
	QueueDepth.WithLabelValues("orderbook").Set(float64(orderbookStats.Depth))
	QueueDepth.WithLabelValues("ticker").Set(float64(tickerStats.Depth))

	return Stats{
		Orderbook: orderbookStats,
		Ticker:    tickerStats,
		Venues:    venues,
	}
}

// Cleanup disconnects every adapter, allowing each a bounded timeout.
// All adapters are attempted even when earlier ones fail.
func (r *Receiver) Cleanup(ctx context.Context) error {
	r.mu.RLock()
	adapters := make([]venue.Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, a := range adapters {
		disconnectCtx, cancel := context.WithTimeout(ctx, disconnectTimeout)
		err := a.Disconnect(disconnectCtx)
		cancel()

		if err != nil {
			r.logger.Warn("adapter-disconnect-failed",
				zap.String("venue", a.Name()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("disconnect %s: %w", a.Name(), err)
			}
			continue
		}

		r.logger.Info("adapter-disconnected", zap.String("venue", a.Name()))
	}

	return firstErr
}
