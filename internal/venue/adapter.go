// Package venue defines the contract between the core and venue adapters.
// An adapter owns its transport and pushes market data into the core through
// the callbacks registered at subscription time.
package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mselser95/perp-arb-monitor/pkg/symbols"
)

// QuotePayload is a raw top-of-book update as delivered by an adapter.
// Symbol is the venue-native symbol and may be empty when the enclosing
// event names the symbol itself.
type QuotePayload struct {
	Symbol   string
	BidPrice decimal.Decimal
	BidSize  decimal.Decimal
	AskPrice decimal.Decimal
	AskSize  decimal.Decimal
	WallTime time.Time
}

// TickerPayload is a raw funding-rate update as delivered by an adapter.
type TickerPayload struct {
	Symbol        string
	FundingRate8h decimal.Decimal
	WallTime      time.Time
}

// QuoteEvent is one orderbook callback invocation. Adapters deliver it in one
// of two shapes: with NativeSymbol set alongside the payload, or with
// NativeSymbol empty and the symbol embedded in the payload. The ingestion
// stage dispatches on whichever is present.
type QuoteEvent struct {
	NativeSymbol string
	Payload      QuotePayload
}

// TickerEvent is one funding-rate callback invocation, with the same two
// shapes as QuoteEvent.
type TickerEvent struct {
	NativeSymbol string
	Payload      TickerPayload
}

// Symbol returns the native symbol regardless of event shape.
func (e QuoteEvent) Symbol() string {
	if e.NativeSymbol != "" {
		return e.NativeSymbol
	}
	return e.Payload.Symbol
}

// Symbol returns the native symbol regardless of event shape.
func (e TickerEvent) Symbol() string {
	if e.NativeSymbol != "" {
		return e.NativeSymbol
	}
	return e.Payload.Symbol
}

// QuoteCallback receives orderbook events on the adapter's I/O context.
// It must never block.
type QuoteCallback func(QuoteEvent)

// TickerCallback receives funding-rate events on the adapter's I/O context.
// It must never block.
type TickerCallback func(TickerEvent)

// NetworkStats is an adapter's transport byte counters.
type NetworkStats struct {
	BytesReceived int64
	BytesSent     int64
}

// ReconnectStats counts an adapter's completed reconnections.
type ReconnectStats struct {
	ReconnectCount int64
}

// Adapter is the contract every venue integration satisfies. The core invokes
// these operations; the adapter owns transport, framing and reconnection.
type Adapter interface {
	// Name returns the venue identifier, e.g. "lighter".
	Name() string

	// SymbolMap returns the canonical<->native symbol mapping for this venue.
	SymbolMap() *symbols.Map

	// Connect establishes transport and market-data channels. Idempotent.
	Connect(ctx context.Context) error

	// SubscribeOrderbook registers a callback for one native symbol. Adapters
	// with batch subscription accept the callback on the first call only;
	// subsequent calls may pass nil to reuse it.
	SubscribeOrderbook(nativeSymbol string, cb QuoteCallback) error

	// SubscribeTicker registers a funding-rate callback for one native symbol,
	// with the same batch-subscription convention as SubscribeOrderbook.
	SubscribeTicker(nativeSymbol string, cb TickerCallback) error

	// Disconnect tears the transport down. Must return within the context
	// deadline; the orchestrator allows 3 seconds.
	Disconnect(ctx context.Context) error

	// NetworkStats reports transport byte counters.
	NetworkStats() NetworkStats

	// ReconnectStats reports completed reconnections.
	ReconnectStats() ReconnectStats
}
