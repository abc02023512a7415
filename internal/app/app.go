// Package app wires the monitor's stages together: venue adapters feed the
// ingestion queues, the processor applies updates to the state store, the
// analysis loop computes spreads and tracks opportunities, and the display
// and history stages consume the results on their own cadences.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/internal/display"
	"github.com/mselser95/perp-arb-monitor/internal/history"
	"github.com/mselser95/perp-arb-monitor/internal/ingest"
	"github.com/mselser95/perp-arb-monitor/internal/state"
	"github.com/mselser95/perp-arb-monitor/pkg/cache"
	"github.com/mselser95/perp-arb-monitor/pkg/config"
	"github.com/mselser95/perp-arb-monitor/pkg/healthprobe"
	"github.com/mselser95/perp-arb-monitor/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	receiver  *ingest.Receiver
	store     *state.Store
	processor *state.Processor
	finder    *arbitrage.Finder
	engine    *display.Engine
	scroller  *display.Scroller
	debugRing *display.DebugRing

	historyStore history.Store
	csvWriter    *history.CSVWriter
	recorder     *history.Recorder
	housekeeper  *history.Housekeeper
	apiCache     cache.Cache

	// scrollerMark is the timestamp of the newest scroller line already
	// rendered. Touched only by the display loop.
	scrollerMark time.Time

	// bestSpreads holds the per-symbol best spread of the latest analysis
	// tick, for the display's per-symbol column.
	bestMu      sync.Mutex
	bestSpreads map[string]float64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
