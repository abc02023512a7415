// Package state holds the authoritative market-data state: the latest quote
// and funding rate per (venue, symbol), written by the processing stage and
// read by the analysis loop.
package state

import (
	"sync"
	"time"

	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// Store is a two-level mapping symbol -> venue -> latest update, with a
// parallel mapping for tickers. Writes are linearizable per key; readers get
// copies, never references into the maps. The store never deletes: staleness
// is filtered at read time.
type Store struct {
	mu          sync.RWMutex
	quotes      map[string]map[string]types.Quote
	tickers     map[string]map[string]types.Ticker
	dataTimeout time.Duration
	now         func() time.Time
}

// NewStore creates a store. Entries older than dataTimeout are filtered from
// fresh reads. now defaults to time.Now when nil.
func NewStore(dataTimeout time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		quotes:      make(map[string]map[string]types.Quote),
		tickers:     make(map[string]map[string]types.Ticker),
		dataTimeout: dataTimeout,
		now:         now,
	}
}

// ApplyQuote overwrites the stored quote for the quote's (venue, symbol).
func (s *Store) ApplyQuote(q types.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byVenue, ok := s.quotes[q.Symbol]
	if !ok {
		byVenue = make(map[string]types.Quote)
		s.quotes[q.Symbol] = byVenue
	}
	byVenue[q.Venue] = q
}

// ApplyTicker overwrites the stored ticker for the ticker's (venue, symbol).
func (s *Store) ApplyTicker(t types.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byVenue, ok := s.tickers[t.Symbol]
	if !ok {
		byVenue = make(map[string]types.Ticker)
		s.tickers[t.Symbol] = byVenue
	}
	byVenue[t.Venue] = t
}

// FreshQuotes returns the per-venue quotes for symbol that are newer than
// the data timeout. The returned map is a copy.
func (s *Store) FreshQuotes(symbol string) map[string]types.Quote {
	cutoff := s.now().Add(-s.dataTimeout)

	s.mu.RLock()
	defer s.mu.RUnlock()

	byVenue := s.quotes[symbol]
	out := make(map[string]types.Quote, len(byVenue))
	for venueName, q := range byVenue {
		if q.WallTime.After(cutoff) {
			out[venueName] = q
		}
	}
	return out
}

// Tickers returns the per-venue funding tickers for symbol. Funding rates
// change slowly; they are not staleness-filtered. The returned map is a copy.
func (s *Store) Tickers(symbol string) map[string]types.Ticker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byVenue := s.tickers[symbol]
	out := make(map[string]types.Ticker, len(byVenue))
	for venueName, t := range byVenue {
		out[venueName] = t
	}
	return out
}

// Symbols returns every symbol with at least one stored quote.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.quotes))
	for symbol := range s.quotes {
		out = append(out, symbol)
	}
	return out
}

// Snapshot returns all fresh quotes keyed by symbol then venue.
func (s *Store) Snapshot() map[string]map[string]types.Quote {
	cutoff := s.now().Add(-s.dataTimeout)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]types.Quote, len(s.quotes))
	for symbol, byVenue := range s.quotes {
		fresh := make(map[string]types.Quote, len(byVenue))
		for venueName, q := range byVenue {
			if q.WallTime.After(cutoff) {
				fresh[venueName] = q
			}
		}
		if len(fresh) > 0 {
			out[symbol] = fresh
		}
	}
	return out
}
