package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/perp-arb-monitor/internal/arbitrage"
	"github.com/mselser95/perp-arb-monitor/internal/display"
	"github.com/mselser95/perp-arb-monitor/internal/history"
	"github.com/mselser95/perp-arb-monitor/internal/ingest"
	"github.com/mselser95/perp-arb-monitor/internal/state"
	"github.com/mselser95/perp-arb-monitor/internal/venue"
	"github.com/mselser95/perp-arb-monitor/pkg/cache"
	"github.com/mselser95/perp-arb-monitor/pkg/config"
	"github.com/mselser95/perp-arb-monitor/pkg/healthprobe"
	"github.com/mselser95/perp-arb-monitor/pkg/httpserver"
	"github.com/mselser95/perp-arb-monitor/pkg/symbols"
)

// New creates a new application instance. Venue transports are not dialed
// until Run.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()
	healthChecker.Register("venues")
	healthChecker.Register("processor")

	store := state.NewStore(cfg.DataTimeout, nil)

	receiver := ingest.New(ingest.Config{
		Symbols:            cfg.Symbols,
		OrderbookQueueSize: cfg.OrderbookQueueSize,
		TickerQueueSize:    cfg.TickerQueueSize,
		Logger:             logger,
	})

	err := registerVenues(cfg, logger, receiver)
	if err != nil {
		cancel()
		return nil, err
	}

	scroller := display.NewScroller(nil)
	debugRing := display.NewDebugRing(nil)
	engine := display.NewEngine(display.EngineConfig{Logger: logger})

	processor := state.NewProcessor(state.ProcessorConfig{
		Store:          store,
		OrderbookQueue: receiver.OrderbookQueue(),
		TickerQueue:    receiver.TickerQueue(),
		OnQuote:        scroller.OnQuote,
		Logger:         logger,
	})

	apiCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		receiver:      receiver,
		store:         store,
		processor:     processor,
		engine:        engine,
		scroller:      scroller,
		debugRing:     debugRing,
		apiCache:      apiCache,
		ctx:           ctx,
		cancel:        cancel,
	}

	// Hysteresis and scroller state hang off new-opportunity events.
	a.finder = arbitrage.NewFinder(arbitrage.FinderConfig{
		MinSpreadPct: cfg.MinSpreadPct,
		OnNew:        a.onNewOpportunity,
		Logger:       logger,
	})

	var historyReader *history.Reader
	if cfg.HistoryEnabled {
		historyReader, err = a.setupHistory()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup history: %w", err)
		}
		healthChecker.Register("recorder")
	}

	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Finder:        a.finder,
		Store:         store,
		StatsFunc:     a.collectStats,
		HistoryReader: historyReader,
		HistoryCache:  apiCache,
	})

	return a, nil
}

// registerVenues builds one streaming adapter per configured exchange.
func registerVenues(cfg *config.Config, logger *zap.Logger, receiver *ingest.Receiver) error {
	for _, venueName := range cfg.Exchanges {
		url := cfg.VenueWSURLs[venueName]
		if url == "" {
			return fmt.Errorf("no websocket url configured for venue %q", venueName)
		}

		symbolMap, err := symbols.NewStyleMap(cfg.VenueSymbolStyles[venueName], cfg.Symbols)
		if err != nil {
			return fmt.Errorf("build symbol map for %q: %w", venueName, err)
		}

		adapter := venue.NewStream(venue.StreamConfig{
			Venue:                venueName,
			URL:                  url,
			SymbolMap:            symbolMap,
			DialTimeout:          cfg.WSDialTimeout,
			PingInterval:         cfg.WSPingInterval,
			ReconnectDelay:       cfg.WSReconnectDelay,
			MaxReconnectAttempts: cfg.WSMaxReconnectAttempts,
			Logger:               logger,
		})

		err = receiver.RegisterAdapter(adapter)
		if err != nil {
			return fmt.Errorf("register adapter %q: %w", venueName, err)
		}

		logger.Info("venue-registered",
			zap.String("venue", venueName),
			zap.String("url", url),
			zap.String("symbol-style", string(cfg.VenueSymbolStyles[venueName])))
	}
	return nil
}

// onNewOpportunity fires exactly once per opportunity creation.
func (a *App) onNewOpportunity(opp *arbitrage.Opportunity) {
	a.engine.RecordOccurrence(opp.Symbol)
	a.scroller.OnNewOpportunity(opp)
	a.debugRing.Add(opp.String())
}

// setupHistory builds the storage backend, recorder and housekeeping, and
// returns the query reader when a database backs the history.
func (a *App) setupHistory() (*history.Reader, error) {
	cfg := a.cfg

	var reader *history.Reader
	if cfg.StorageMode == "postgres" {
		pgStore, err := history.NewPostgresStore(&history.PostgresConfig{
			DSN:    cfg.PostgresDSN(),
			Logger: a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres history store: %w", err)
		}
		a.historyStore = pgStore
		reader = history.NewReader(pgStore.DB())
	} else {
		a.historyStore = history.NewConsoleStore(a.logger)
	}

	if cfg.HistoryCSVEnabled {
		csvWriter, err := history.NewCSVWriter(history.CSVConfig{
			DataDir: cfg.HistoryDataDir,
			Logger:  a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create csv writer: %w", err)
		}
		a.csvWriter = csvWriter

		a.housekeeper = history.NewHousekeeper(history.HousekeeperConfig{
			DataDir:           cfg.HistoryDataDir,
			CompressAfterDays: cfg.HistoryCompressAfter,
			ArchiveAfterDays:  cfg.HistoryArchiveAfter,
			Interval:          cfg.HistoryCleanupInterval,
			Logger:            a.logger,
		})
	}

	a.recorder = history.NewRecorder(history.RecorderConfig{
		Store:          a.historyStore,
		CSV:            a.csvWriter,
		SampleInterval: cfg.HistorySampleInterval,
		Strategy:       cfg.HistoryStrategy,
		BatchSize:      cfg.HistoryBatchSize,
		BatchTimeout:   cfg.HistoryBatchTimeout,
		QueueMaxSize:   cfg.HistoryQueueMaxSize,
		Logger:         a.logger,
	})

	return reader, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}
