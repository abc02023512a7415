package venue

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mselser95/perp-arb-monitor/pkg/symbols"
)

func newTestAdapter(t *testing.T) *StreamAdapter {
	t.Helper()

	m, err := symbols.NewStyleMap(symbols.StyleBase, []string{"BTC-USDC-PERP", "ETH-USDC-PERP"})
	if err != nil {
		t.Fatalf("NewStyleMap: %v", err)
	}

	return NewStream(StreamConfig{
		Venue:                "lighter",
		URL:                  "wss://api.lighter.example/ws",
		SymbolMap:            m,
		DialTimeout:          10 * time.Second,
		PingInterval:         30 * time.Second,
		ReconnectDelay:       time.Second,
		MaxReconnectAttempts: 5,
		Logger:               zaptest.NewLogger(t),
	})
}

func TestStreamAdapter_Name(t *testing.T) {
	a := newTestAdapter(t)
	if a.Name() != "lighter" {
		t.Errorf("expected venue lighter, got %q", a.Name())
	}
}

func TestStreamAdapter_FirstSubscriptionRequiresCallback(t *testing.T) {
	a := newTestAdapter(t)

	err := a.SubscribeOrderbook("BTC", nil)
	if err == nil {
		t.Fatal("expected error when the first subscription carries no callback")
	}

	err = a.SubscribeTicker("BTC", nil)
	if err == nil {
		t.Fatal("expected error when the first ticker subscription carries no callback")
	}
}

func TestStreamAdapter_BatchSubscriptionReusesCallback(t *testing.T) {
	a := newTestAdapter(t)

	var events []QuoteEvent
	err := a.SubscribeOrderbook("BTC", func(ev QuoteEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("SubscribeOrderbook: %v", err)
	}

	// Subsequent calls pass nil and reuse the first callback.
	err = a.SubscribeOrderbook("ETH", nil)
	if err != nil {
		t.Fatalf("SubscribeOrderbook with nil callback: %v", err)
	}

	a.handleFrame([]byte(`{"type":"orderbook","symbol":"ETH","bid_price":"3000.5","bid_size":"2","ask_price":"3001","ask_size":"1","ts":1712345678901}`))

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Symbol() != "ETH" {
		t.Errorf("expected native symbol ETH, got %q", events[0].Symbol())
	}
}

func TestStreamAdapter_HandleFrame_Orderbook(t *testing.T) {
	a := newTestAdapter(t)

	var got QuoteEvent
	err := a.SubscribeOrderbook("BTC", func(ev QuoteEvent) { got = ev })
	if err != nil {
		t.Fatalf("SubscribeOrderbook: %v", err)
	}

	a.handleFrame([]byte(`{"type":"orderbook","symbol":"BTC","bid_price":"97100.5","bid_size":"1.2","ask_price":"97101.0","ask_size":"0.8","ts":1712345678901}`))

	// Orderbook events use the two-argument shape.
	if got.NativeSymbol != "BTC" {
		t.Errorf("expected NativeSymbol BTC, got %q", got.NativeSymbol)
	}
	if got.Payload.BidPrice.String() != "97100.5" {
		t.Errorf("expected bid 97100.5, got %s", got.Payload.BidPrice)
	}
	if got.Payload.AskSize.String() != "0.8" {
		t.Errorf("expected ask size 0.8, got %s", got.Payload.AskSize)
	}
	if got.Payload.WallTime.UnixMilli() != 1712345678901 {
		t.Errorf("expected wall time from frame, got %v", got.Payload.WallTime)
	}
}

func TestStreamAdapter_HandleFrame_Ticker(t *testing.T) {
	a := newTestAdapter(t)

	var got TickerEvent
	err := a.SubscribeTicker("BTC", func(ev TickerEvent) { got = ev })
	if err != nil {
		t.Fatalf("SubscribeTicker: %v", err)
	}

	a.handleFrame([]byte(`{"type":"ticker","symbol":"BTC","funding_rate_8h":"0.0001","ts":1712345678901}`))

	// Ticker events use the single-argument shape: symbol embedded in payload.
	if got.NativeSymbol != "" {
		t.Errorf("expected empty NativeSymbol, got %q", got.NativeSymbol)
	}
	if got.Symbol() != "BTC" {
		t.Errorf("expected embedded symbol BTC, got %q", got.Symbol())
	}
	if got.Payload.FundingRate8h.String() != "0.0001" {
		t.Errorf("expected funding rate 0.0001, got %s", got.Payload.FundingRate8h)
	}
}

func TestStreamAdapter_HandleFrame_Garbage(t *testing.T) {
	a := newTestAdapter(t)

	calls := 0
	err := a.SubscribeOrderbook("BTC", func(QuoteEvent) { calls++ })
	if err != nil {
		t.Fatalf("SubscribeOrderbook: %v", err)
	}

	a.handleFrame([]byte(`not json`))
	a.handleFrame([]byte(`{"type":"heartbeat"}`))
	a.handleFrame([]byte(`{}`))

	if calls != 0 {
		t.Errorf("expected no callback invocations for garbage frames, got %d", calls)
	}
}

func TestQuoteEvent_SymbolFallback(t *testing.T) {
	ev := QuoteEvent{Payload: QuotePayload{Symbol: "BTCUSD"}}
	if ev.Symbol() != "BTCUSD" {
		t.Errorf("expected payload symbol fallback, got %q", ev.Symbol())
	}

	ev.NativeSymbol = "BTC"
	if ev.Symbol() != "BTC" {
		t.Errorf("expected NativeSymbol to take precedence, got %q", ev.Symbol())
	}
}
