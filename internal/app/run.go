package app

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Strings("exchanges", a.cfg.Exchanges),
		zap.Strings("symbols", a.cfg.Symbols),
		zap.Float64("min-spread-pct", a.cfg.MinSpreadPct),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server first so /health answers during venue dialing.
	a.wg.Add(1)
	go a.runHTTPServer()

	err := a.connectVenues()
	if err != nil {
		return err
	}
	a.healthChecker.SetReady("venues", true)

	err = a.receiver.SubscribeAll()
	if err != nil {
		return fmt.Errorf("subscribe venues: %w", err)
	}

	a.processor.Start(a.ctx)
	a.healthChecker.SetReady("processor", true)

	if a.recorder != nil {
		a.recorder.Start(a.ctx)
		a.healthChecker.SetReady("recorder", true)
	}
	if a.housekeeper != nil {
		a.housekeeper.Start(a.ctx)
	}

	a.wg.Add(1)
	go a.runAnalysisLoop()

	a.wg.Add(1)
	go a.runDisplayLoop()

	return nil
}

// connectVenues dials all venue transports in parallel. A single failing
// venue aborts startup: the monitor is useless without its full venue set.
func (a *App) connectVenues() error {
	adapters := a.receiver.Adapters()

	var wg sync.WaitGroup
	errs := make([]error, len(adapters))

	for i := range adapters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := adapters[i].Connect(a.ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", adapters[i].Name(), err)
			}
		}(i)
	}
	wg.Wait()

	var failed []string
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("connect venues: %s", strings.Join(failed, "; "))
	}

	a.logger.Info("all-venues-connected", zap.Int("venues", len(adapters)))
	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runAnalysisLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.safeTick("analysis", a.analysisTick)
		}
	}
}

func (a *App) runDisplayLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.UIRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.safeTick("display", a.renderDisplay)
		}
	}
}

// safeTick isolates one loop iteration: a failing consumer is logged and
// surfaced in the debug pane instead of tearing down the loop.
func (a *App) safeTick(loop string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("loop-iteration-panic",
				zap.String("loop", loop),
				zap.Any("panic", rec))
			a.debugRing.Add(fmt.Sprintf("%s loop error: %v", loop, rec))
		}
	}()
	fn()
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
