package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/pkg/symbols"
	"github.com/mselser95/perp-arb-monitor/pkg/wsfeed"
)

// StreamConfig holds configuration for a generic streaming adapter.
type StreamConfig struct {
	Venue                string
	URL                  string
	SymbolMap            *symbols.Map
	DialTimeout          time.Duration
	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	Logger               *zap.Logger
}

// StreamAdapter is a venue adapter over a plain JSON quote/ticker stream.
// It handles venues whose feed already speaks the neutral wire format below;
// venues with bespoke framing get their own Adapter implementation.
//
// Wire format, one JSON object per text frame:
//
//	{"type":"orderbook","symbol":"BTC","bid_price":"97100.5","bid_size":"1.2",
//	 "ask_price":"97101.0","ask_size":"0.8","ts":1712345678901}
//	{"type":"ticker","symbol":"BTC","funding_rate_8h":"0.0001","ts":1712345678901}
//
// Subscriptions are sent as {"op":"subscribe","channel":...,"symbols":[...]}.
type StreamAdapter struct {
	name      string
	feed      *wsfeed.Feed
	symbolMap *symbols.Map
	logger    *zap.Logger

	mu             sync.RWMutex
	quoteSymbols   []string
	tickerSymbols  []string
	quoteCallback  QuoteCallback
	tickerCallback TickerCallback
	connected      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type streamMessage struct {
	Type          string          `json:"type"`
	Symbol        string          `json:"symbol"`
	BidPrice      decimal.Decimal `json:"bid_price"`
	BidSize       decimal.Decimal `json:"bid_size"`
	AskPrice      decimal.Decimal `json:"ask_price"`
	AskSize       decimal.Decimal `json:"ask_size"`
	FundingRate8h decimal.Decimal `json:"funding_rate_8h"`
	Timestamp     int64           `json:"ts"` // unix milliseconds
}

type subscribeMessage struct {
	Op      string   `json:"op"`
	Channel string   `json:"channel"`
	Symbols []string `json:"symbols"`
}

// NewStream creates a streaming adapter. The transport is not dialed until
// Connect.
func NewStream(cfg StreamConfig) *StreamAdapter {
	ctx, cancel := context.WithCancel(context.Background())

	feed := wsfeed.New(wsfeed.Config{
		Venue:                cfg.Venue,
		URL:                  cfg.URL,
		DialTimeout:          cfg.DialTimeout,
		PingInterval:         cfg.PingInterval,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		Logger:               cfg.Logger,
	})

	return &StreamAdapter{
		name:      cfg.Venue,
		feed:      feed,
		symbolMap: cfg.SymbolMap,
		logger:    cfg.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Name returns the venue identifier.
func (a *StreamAdapter) Name() string {
	return a.name
}

// SymbolMap returns the canonical<->native mapping for this venue.
func (a *StreamAdapter) SymbolMap() *symbols.Map {
	return a.symbolMap
}

// Connect dials the feed, sends subscriptions registered so far and starts
// the dispatch loop. Calling Connect on a connected adapter is a no-op.
func (a *StreamAdapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.connected {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	a.feed.SetOnReconnect(a.resubscribe)

	err := a.feed.Start()
	if err != nil {
		return fmt.Errorf("venue %s: start feed: %w", a.name, err)
	}

	err = a.resubscribe(ctx)
	if err != nil {
		return fmt.Errorf("venue %s: subscribe: %w", a.name, err)
	}

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.dispatchLoop()

	return nil
}

// SubscribeOrderbook registers the orderbook callback for one native symbol.
// This adapter batch-subscribes: the first call carries the callback and
// later calls may pass nil.
func (a *StreamAdapter) SubscribeOrderbook(nativeSymbol string, cb QuoteCallback) error {
	a.mu.Lock()
	if cb != nil {
		a.quoteCallback = cb
	}
	if a.quoteCallback == nil {
		a.mu.Unlock()
		return fmt.Errorf("venue %s: first orderbook subscription must carry a callback", a.name)
	}
	a.quoteSymbols = append(a.quoteSymbols, nativeSymbol)
	connected := a.connected
	a.mu.Unlock()

	if connected {
		return a.feed.Send(subscribeMessage{Op: "subscribe", Channel: "orderbook", Symbols: []string{nativeSymbol}})
	}
	return nil
}

// SubscribeTicker registers the funding-rate callback for one native symbol,
// with the same batch convention as SubscribeOrderbook.
func (a *StreamAdapter) SubscribeTicker(nativeSymbol string, cb TickerCallback) error {
	a.mu.Lock()
	if cb != nil {
		a.tickerCallback = cb
	}
	if a.tickerCallback == nil {
		a.mu.Unlock()
		return fmt.Errorf("venue %s: first ticker subscription must carry a callback", a.name)
	}
	a.tickerSymbols = append(a.tickerSymbols, nativeSymbol)
	connected := a.connected
	a.mu.Unlock()

	if connected {
		return a.feed.Send(subscribeMessage{Op: "subscribe", Channel: "ticker", Symbols: []string{nativeSymbol}})
	}
	return nil
}

// resubscribe sends the full subscription set. Used on connect and after
// every reconnect.
func (a *StreamAdapter) resubscribe(_ context.Context) error {
	a.mu.RLock()
	quoteSymbols := append([]string(nil), a.quoteSymbols...)
	tickerSymbols := append([]string(nil), a.tickerSymbols...)
	a.mu.RUnlock()

	if len(quoteSymbols) > 0 {
		err := a.feed.Send(subscribeMessage{Op: "subscribe", Channel: "orderbook", Symbols: quoteSymbols})
		if err != nil {
			return fmt.Errorf("subscribe orderbook: %w", err)
		}
	}
	if len(tickerSymbols) > 0 {
		err := a.feed.Send(subscribeMessage{Op: "subscribe", Channel: "ticker", Symbols: tickerSymbols})
		if err != nil {
			return fmt.Errorf("subscribe ticker: %w", err)
		}
	}

	a.logger.Info("venue-subscribed",
		zap.String("venue", a.name),
		zap.Int("orderbook-symbols", len(quoteSymbols)),
		zap.Int("ticker-symbols", len(tickerSymbols)))

	return nil
}

// dispatchLoop decodes inbound frames and invokes the registered callbacks.
func (a *StreamAdapter) dispatchLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case frame, ok := <-a.feed.Frames():
			if !ok {
				return
			}
			a.handleFrame(frame)
		}
	}
}

// handleFrame decodes one wire frame and dispatches it. Orderbook events use
// the two-argument callback shape (native symbol beside the payload); ticker
// events use the single-argument shape with the symbol embedded.
func (a *StreamAdapter) handleFrame(frame []byte) {
	var msg streamMessage
	err := json.Unmarshal(frame, &msg)
	if err != nil {
		a.logger.Debug("unparseable-frame",
			zap.String("venue", a.name),
			zap.Int("bytes", len(frame)),
			zap.Error(err))
		return
	}

	wallTime := time.Now()
	if msg.Timestamp > 0 {
		wallTime = time.UnixMilli(msg.Timestamp)
	}

	a.mu.RLock()
	quoteCb := a.quoteCallback
	tickerCb := a.tickerCallback
	a.mu.RUnlock()

	switch msg.Type {
	case "orderbook":
		if quoteCb == nil {
			return
		}
		quoteCb(QuoteEvent{
			NativeSymbol: msg.Symbol,
			Payload: QuotePayload{
				BidPrice: msg.BidPrice,
				BidSize:  msg.BidSize,
				AskPrice: msg.AskPrice,
				AskSize:  msg.AskSize,
				WallTime: wallTime,
			},
		})
	case "ticker":
		if tickerCb == nil {
			return
		}
		tickerCb(TickerEvent{
			Payload: TickerPayload{
				Symbol:        msg.Symbol,
				FundingRate8h: msg.FundingRate8h,
				WallTime:      wallTime,
			},
		})
	default:
		a.logger.Debug("unknown-frame-type",
			zap.String("venue", a.name),
			zap.String("type", msg.Type))
	}
}

// Disconnect tears down the transport. It respects the context deadline and
// reports a timeout if the feed does not close in time.
func (a *StreamAdapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil
	}
	a.connected = false
	a.mu.Unlock()

	a.cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.feed.Close()
	}()

	select {
	case err := <-done:
		a.wg.Wait()
		return err
	case <-ctx.Done():
		return fmt.Errorf("venue %s: disconnect: %w", a.name, ctx.Err())
	}
}

// NetworkStats reports the feed's transport byte counters.
func (a *StreamAdapter) NetworkStats() NetworkStats {
	stats := a.feed.Stats()
	return NetworkStats{
		BytesReceived: stats.BytesReceived,
		BytesSent:     stats.BytesSent,
	}
}

// ReconnectStats reports the feed's completed reconnections.
func (a *StreamAdapter) ReconnectStats() ReconnectStats {
	stats := a.feed.Stats()
	return ReconnectStats{ReconnectCount: stats.Reconnects}
}
