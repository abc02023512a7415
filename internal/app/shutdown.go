package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application: stop producing, drain what
// is in flight, then close storage.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady("venues", false)
	a.healthChecker.SetReady("processor", false)

	// Cancel context to stop the analysis and display loops.
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Disconnect venues before stopping the processor so no new updates
	// arrive while the queues drain.
	err = a.receiver.Cleanup(shutdownCtx)
	if err != nil {
		a.logger.Error("venue-cleanup-error", zap.Error(err))
	}

	a.processor.Close()

	if a.recorder != nil {
		a.healthChecker.SetReady("recorder", false)
		a.recorder.Close()
	}
	if a.housekeeper != nil {
		a.housekeeper.Close()
	}
	if a.csvWriter != nil {
		err = a.csvWriter.Close()
		if err != nil {
			a.logger.Error("csv-writer-close-error", zap.Error(err))
		}
	}
	if a.historyStore != nil {
		err = a.historyStore.Close()
		if err != nil {
			a.logger.Error("history-store-close-error", zap.Error(err))
		}
	}

	a.apiCache.Close()

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
