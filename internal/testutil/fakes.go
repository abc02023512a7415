// Package testutil provides fakes and fixtures shared across package tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/perp-arb-monitor/internal/venue"
	"github.com/mselser95/perp-arb-monitor/pkg/symbols"
)

// FakeAdapter is an in-memory venue.Adapter for tests. Emit* methods drive
// the registered callbacks exactly like a live adapter's I/O goroutine would.
type FakeAdapter struct {
	VenueName   string
	Map         *symbols.Map
	ConnectErr  error
	Network     venue.NetworkStats
	Reconnects  venue.ReconnectStats
	SlowDisconn time.Duration // simulated disconnect latency

	mu            sync.Mutex
	connected     bool
	orderbookSubs []string
	tickerSubs    []string
	quoteCb       venue.QuoteCallback
	tickerCb      venue.TickerCallback
}

// NewFakeAdapter creates a fake adapter with a StyleBase symbol map over the
// given canonical watch list.
func NewFakeAdapter(name string, canonicals ...string) *FakeAdapter {
	m, err := symbols.NewStyleMap(symbols.StyleBase, canonicals)
	if err != nil {
		panic(err)
	}
	return &FakeAdapter{VenueName: name, Map: m}
}

func (f *FakeAdapter) Name() string { return f.VenueName }

func (f *FakeAdapter) SymbolMap() *symbols.Map { return f.Map }

func (f *FakeAdapter) Connect(_ context.Context) error {
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *FakeAdapter) SubscribeOrderbook(nativeSymbol string, cb venue.QuoteCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb != nil {
		f.quoteCb = cb
	}
	f.orderbookSubs = append(f.orderbookSubs, nativeSymbol)
	return nil
}

func (f *FakeAdapter) SubscribeTicker(nativeSymbol string, cb venue.TickerCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb != nil {
		f.tickerCb = cb
	}
	f.tickerSubs = append(f.tickerSubs, nativeSymbol)
	return nil
}

func (f *FakeAdapter) Disconnect(ctx context.Context) error {
	if f.SlowDisconn > 0 {
		select {
		case <-time.After(f.SlowDisconn):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *FakeAdapter) NetworkStats() venue.NetworkStats { return f.Network }

func (f *FakeAdapter) ReconnectStats() venue.ReconnectStats { return f.Reconnects }

// Connected reports whether Connect has been called without a later
// Disconnect.
func (f *FakeAdapter) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// OrderbookSubscriptions returns the native symbols subscribed for quotes.
func (f *FakeAdapter) OrderbookSubscriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.orderbookSubs...)
}

// EmitQuote invokes the registered orderbook callback with the two-argument
// event shape.
func (f *FakeAdapter) EmitQuote(nativeSymbol string, payload venue.QuotePayload) {
	f.mu.Lock()
	cb := f.quoteCb
	f.mu.Unlock()
	if cb != nil {
		cb(venue.QuoteEvent{NativeSymbol: nativeSymbol, Payload: payload})
	}
}

// EmitQuotePayloadOnly invokes the orderbook callback with the
// single-argument shape: the symbol travels inside the payload.
func (f *FakeAdapter) EmitQuotePayloadOnly(payload venue.QuotePayload) {
	f.mu.Lock()
	cb := f.quoteCb
	f.mu.Unlock()
	if cb != nil {
		cb(venue.QuoteEvent{Payload: payload})
	}
}

// EmitTicker invokes the registered ticker callback with the single-argument
// shape.
func (f *FakeAdapter) EmitTicker(payload venue.TickerPayload) {
	f.mu.Lock()
	cb := f.tickerCb
	f.mu.Unlock()
	if cb != nil {
		cb(venue.TickerEvent{Payload: payload})
	}
}
