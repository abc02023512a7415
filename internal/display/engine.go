// Package display overlays presentation behavior on the instantaneous
// opportunity set: duration hysteresis, post-disappearance holds, occurrence
// counting, the realtime scroller and the debug ring. Nothing here feeds
// back into core tracking.
package display

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
)

const (
	// continuationTolerance is the gap a displayed opportunity may survive
	// without its duration resetting.
	continuationTolerance = 2 * time.Second

	// disappearHold keeps a vanished opportunity on screen.
	disappearHold = 5 * time.Second

	// occurrenceWindow is the rolling window for per-symbol counts.
	occurrenceWindow = 15 * time.Minute

	// occurrenceDedup suppresses duplicate occurrence appends.
	occurrenceDedup = time.Second
)

// Row is one renderable line of the opportunity table.
type Row struct {
	Opportunity     arbitrage.Opportunity
	DurationSeconds float64
	OccurrenceCount int
	// Disappeared marks rows held past their expiry for legibility.
	Disappeared bool
}

// EngineConfig holds display engine configuration.
type EngineConfig struct {
	Logger *zap.Logger
	Now    func() time.Time
}

// Engine maintains UI-only temporal state across analysis ticks. It is fed
// by ObserveTick on every analysis tick and rendered via Snapshot on every
// display refresh; the two cadences are independent.
type Engine struct {
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	tracking    map[string]*trackingEntry
	current     map[string]arbitrage.Opportunity
	disappeared map[string]*disappearedEntry
	occurrences map[string][]time.Time
}

type trackingEntry struct {
	uiDurationStart time.Time
	lastUISeen      time.Time
}

type disappearedEntry struct {
	opp           arbitrage.Opportunity
	disappearedAt time.Time
}

// NewEngine creates a display engine.
func NewEngine(cfg EngineConfig) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		logger:      cfg.Logger,
		now:         now,
		tracking:    make(map[string]*trackingEntry),
		current:     make(map[string]arbitrage.Opportunity),
		disappeared: make(map[string]*disappearedEntry),
		occurrences: make(map[string][]time.Time),
	}
}

// ObserveTick ingests one analysis tick's live opportunity list.
func (e *Engine) ObserveTick(opps []arbitrage.Opportunity) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]arbitrage.Opportunity, len(opps))
	for _, opp := range opps {
		key := opp.Key()
		next[key] = opp

		entry, ok := e.tracking[key]
		if ok && now.Sub(entry.lastUISeen) <= continuationTolerance {
			entry.lastUISeen = now
		} else {
			e.tracking[key] = &trackingEntry{uiDurationStart: now, lastUISeen: now}
		}

		// A reappearance cancels the hold.
		delete(e.disappeared, key)

		// A brand-new key keeps its symbol's held entries alive: the symbol
		// is still active.
		if _, wasPresent := e.current[key]; !wasPresent {
			for heldKey, held := range e.disappeared {
				if held.opp.Symbol == opp.Symbol && heldKey != key {
					held.disappearedAt = now
				}
			}
		}
	}

	// Keys gone this tick move to the disappeared hold with their last
	// known state.
	for key, opp := range e.current {
		if _, stillHere := next[key]; stillHere {
			continue
		}
		e.disappeared[key] = &disappearedEntry{opp: opp, disappearedAt: now}
	}

	// Drop tracking entries whose gap exceeded the tolerance; their duration
	// would reset on return anyway.
	for key, entry := range e.tracking {
		if _, present := next[key]; present {
			continue
		}
		if now.Sub(entry.lastUISeen) > continuationTolerance {
			delete(e.tracking, key)
		}
	}

	e.pruneOccurrencesLocked(now)

	e.current = next
}

// RecordOccurrence notes a brand-new opportunity for symbol. Appends within
// one second of the previous entry are suppressed.
func (e *Engine) RecordOccurrence(symbol string) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.occurrences[symbol]
	if len(list) > 0 && now.Sub(list[len(list)-1]) < occurrenceDedup {
		return
	}
	e.occurrences[symbol] = append(list, now)
}

func (e *Engine) pruneOccurrencesLocked(now time.Time) {
	cutoff := now.Add(-occurrenceWindow)
	for symbol, list := range e.occurrences {
		firstFresh := 0
		for firstFresh < len(list) && list[firstFresh].Before(cutoff) {
			firstFresh++
		}
		if firstFresh == len(list) {
			delete(e.occurrences, symbol)
			continue
		}
		if firstFresh > 0 {
			e.occurrences[symbol] = append(list[:0], list[firstFresh:]...)
		}
	}
}

// Snapshot renders the current rows: live opportunities plus unexpired held
// entries, sorted by spread descending. Expired holds are purged here, on
// the display refresh, not on the analysis tick.
func (e *Engine) Snapshot() []Row {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	for key, held := range e.disappeared {
		if now.Sub(held.disappearedAt) >= disappearHold {
			delete(e.disappeared, key)
		}
	}

	e.pruneOccurrencesLocked(now)

	rows := make([]Row, 0, len(e.current)+len(e.disappeared))
	for key, opp := range e.current {
		var duration float64
		if entry, ok := e.tracking[key]; ok {
			duration = now.Sub(entry.uiDurationStart).Seconds()
		}
		rows = append(rows, Row{
			Opportunity:     opp,
			DurationSeconds: duration,
			OccurrenceCount: len(e.occurrences[opp.Symbol]),
		})
	}
	for _, held := range e.disappeared {
		rows = append(rows, Row{
			Opportunity:     held.opp,
			OccurrenceCount: len(e.occurrences[held.opp.Symbol]),
			Disappeared:     true,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Opportunity.SpreadPct != rows[j].Opportunity.SpreadPct {
			return rows[i].Opportunity.SpreadPct > rows[j].Opportunity.SpreadPct
		}
		return rows[i].Opportunity.Key() < rows[j].Opportunity.Key()
	})

	DisplayedRows.Set(float64(len(rows)))

	return rows
}

// OccurrenceCount returns the pruned window count for one symbol.
func (e *Engine) OccurrenceCount(symbol string) int {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.pruneOccurrencesLocked(now)
	return len(e.occurrences[symbol])
}
