package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/pkg/types"
)

const (
	// scrollerCapacity is the ring size of retained lines.
	scrollerCapacity = 20

	// scrollerThrottle is the global minimum gap between quote lines.
	scrollerThrottle = 500 * time.Millisecond

	// scrollerMinMidChangePct suppresses quote lines whose mid-price moved
	// less than this percentage since the last emitted line for the same
	// (venue, symbol).
	scrollerMinMidChangePct = 0.01

	// scrollerOppDedup is the per-symbol window for opportunity lines.
	scrollerOppDedup = time.Second
)

// Line is one scroller entry.
type Line struct {
	At   time.Time
	Text string
}

// Scroller is a bounded ring of recent market activity lines with two
// producers: the processing stage (quote updates) and the opportunity finder
// (new opportunities). Each new opportunity produces at most one line.
type Scroller struct {
	now func() time.Time

	mu          sync.Mutex
	lines       []Line
	lastEmit    time.Time
	lastMid     map[string]float64
	lastOppEmit map[string]time.Time
}

// NewScroller creates a scroller. now defaults to time.Now when nil.
func NewScroller(now func() time.Time) *Scroller {
	if now == nil {
		now = time.Now
	}
	return &Scroller{
		now:         now,
		lastMid:     make(map[string]float64),
		lastOppEmit: make(map[string]time.Time),
	}
}

// OnQuote considers one processed quote for emission. Subject to the global
// throttle and the per-(venue, symbol) mid-price change filter.
func (s *Scroller) OnQuote(q types.Quote) {
	now := s.now()
	mid := q.Mid()
	key := q.Venue + ":" + q.Symbol

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastEmit.IsZero() && now.Sub(s.lastEmit) < scrollerThrottle {
		ScrollerSuppressedTotal.WithLabelValues("throttle").Inc()
		return
	}

	if prev, ok := s.lastMid[key]; ok && prev != 0 {
		changePct := (mid - prev) / prev * 100
		if changePct < 0 {
			changePct = -changePct
		}
		if changePct < scrollerMinMidChangePct {
			ScrollerSuppressedTotal.WithLabelValues("mid_unchanged").Inc()
			return
		}
	}

	s.lastEmit = now
	s.lastMid[key] = mid
	s.appendLocked(Line{
		At:   now,
		Text: fmt.Sprintf("%s %s mid=%.2f bid=%s ask=%s", q.Venue, q.Symbol, mid, q.BidPrice, q.AskPrice),
	})
	ScrollerEmittedTotal.WithLabelValues("quote").Inc()
}

// OnNewOpportunity emits one line for a newly created opportunity, subject
// to the per-symbol deduplication window.
func (s *Scroller) OnNewOpportunity(o *arbitrage.Opportunity) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastOppEmit[o.Symbol]; ok && now.Sub(last) < scrollerOppDedup {
		ScrollerSuppressedTotal.WithLabelValues("opp_dedup").Inc()
		return
	}

	s.lastOppEmit[o.Symbol] = now
	s.appendLocked(Line{
		At: now,
		Text: fmt.Sprintf("ARB %s buy %s@%s sell %s@%s spread=%.4f%%",
			o.Symbol, o.VenueBuy, o.PriceBuy, o.VenueSell, o.PriceSell, o.SpreadPct),
	})
	ScrollerEmittedTotal.WithLabelValues("opportunity").Inc()
}

func (s *Scroller) appendLocked(line Line) {
	s.lines = append(s.lines, line)
	if len(s.lines) > scrollerCapacity {
		s.lines = s.lines[len(s.lines)-scrollerCapacity:]
	}
}

// Lines returns the retained lines, oldest first.
func (s *Scroller) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}
