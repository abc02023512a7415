package arbitrage

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

// FinderConfig holds opportunity finder configuration.
type FinderConfig struct {
	MinSpreadPct float64
	// OnNew, when set, fires exactly once per newly created opportunity.
	OnNew  func(*Opportunity)
	Logger *zap.Logger
	Now    func() time.Time
}

// FinderStats is a snapshot of the finder's lifetime counters.
type FinderStats struct {
	Active  int
	Found   uint64
	Expired uint64
}

// Finder tracks opportunity lifecycle across analysis ticks: creation,
// refresh and expiry. It holds core tracking state only; display hysteresis
// lives elsewhere.
type Finder struct {
	minSpreadPct float64
	onNew        func(*Opportunity)
	logger       *zap.Logger
	now          func() time.Time

	mu            sync.Mutex
	opportunities map[string]*Opportunity

	found   atomic.Uint64
	expired atomic.Uint64
}

// NewFinder creates an opportunity finder.
func NewFinder(cfg FinderConfig) *Finder {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Finder{
		minSpreadPct:  cfg.MinSpreadPct,
		onNew:         cfg.OnNew,
		logger:        cfg.Logger,
		now:           now,
		opportunities: make(map[string]*Opportunity),
	}
}

// Update reconciles the tracked opportunities against this tick's spreads
// and funding tickers, then returns the live set sorted by spread percentage
// descending (key ascending on ties). Returned opportunities are copies.
func (f *Finder) Update(spreads []Spread, tickers map[string]map[string]types.Ticker) []Opportunity {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	currentKeys := make(map[string]bool, len(spreads))
	var created []*Opportunity

	for _, s := range spreads {
		if s.SpreadPct < f.minSpreadPct {
			continue
		}

		key := s.Key()
		currentKeys[key] = true

		opp, exists := f.opportunities[key]
		if exists {
			opp.refresh(s, now)
		} else {
			opp = newOpportunity(s, now)
			f.opportunities[key] = opp
			f.found.Add(1)
			OpportunitiesFoundTotal.Inc()
			created = append(created, opp)

			f.logger.Debug("opportunity-found",
				zap.String("symbol", opp.Symbol),
				zap.String("venue-buy", opp.VenueBuy),
				zap.String("venue-sell", opp.VenueSell),
				zap.Float64("spread-pct", opp.SpreadPct))
		}

		opp.attachFunding(tickers[s.Symbol])
	}

	for key, opp := range f.opportunities {
		if currentKeys[key] {
			continue
		}
		delete(f.opportunities, key)
		f.expired.Add(1)
		OpportunitiesExpiredTotal.Inc()

		f.logger.Debug("opportunity-expired",
			zap.String("symbol", opp.Symbol),
			zap.String("venue-buy", opp.VenueBuy),
			zap.String("venue-sell", opp.VenueSell))
	}

	ActiveOpportunities.Set(float64(len(f.opportunities)))

	out := make([]Opportunity, 0, len(f.opportunities))
	for _, opp := range f.opportunities {
		out = append(out, *opp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SpreadPct != out[j].SpreadPct {
			return out[i].SpreadPct > out[j].SpreadPct
		}
		return out[i].Key() < out[j].Key()
	})

	if f.onNew != nil {
		for _, opp := range created {
			clone := *opp
			f.onNew(&clone)
		}
	}

	return out
}

// Active returns copies of the live opportunities sorted by spread
// percentage descending (key ascending on ties).
func (f *Finder) Active() []Opportunity {
	f.mu.Lock()
	out := make([]Opportunity, 0, len(f.opportunities))
	for _, opp := range f.opportunities {
		out = append(out, *opp)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SpreadPct != out[j].SpreadPct {
			return out[i].SpreadPct > out[j].SpreadPct
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// Stats returns the finder's counters.
func (f *Finder) Stats() FinderStats {
	f.mu.Lock()
	active := len(f.opportunities)
	f.mu.Unlock()

	return FinderStats{
		Active:  active,
		Found:   f.found.Load(),
		Expired: f.expired.Load(),
	}
}
