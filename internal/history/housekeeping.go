package history

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const archiveDirName = "archive"

// Housekeeper ages CSV history files: daily files older than CompressAfter
// are gzipped in place, gzipped files older than ArchiveAfter move into an
// archive subdirectory. Runs on a fixed interval.
type Housekeeper struct {
	dataDir       string
	compressAfter time.Duration
	archiveAfter  time.Duration
	interval      time.Duration
	logger        *zap.Logger
	now           func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// HousekeeperConfig holds housekeeping configuration.
type HousekeeperConfig struct {
	DataDir           string
	CompressAfterDays int
	ArchiveAfterDays  int
	Interval          time.Duration
	Logger            *zap.Logger
	Now               func() time.Time
}

// NewHousekeeper creates a housekeeper.
func NewHousekeeper(cfg HousekeeperConfig) *Housekeeper {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Housekeeper{
		dataDir:       cfg.DataDir,
		compressAfter: time.Duration(cfg.CompressAfterDays) * 24 * time.Hour,
		archiveAfter:  time.Duration(cfg.ArchiveAfterDays) * 24 * time.Hour,
		interval:      cfg.Interval,
		logger:        cfg.Logger,
		now:           now,
	}
}

// Start runs one sweep immediately, then repeats on the interval.
func (h *Housekeeper) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		h.sweep()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				h.sweep()
			}
		}
	}()
}

// Close stops the housekeeping loop.
func (h *Housekeeper) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

// sweep applies compression and archival policy to every dated file found.
func (h *Housekeeper) sweep() {
	entries, err := os.ReadDir(h.dataDir)
	if err != nil {
		h.logger.Warn("history-housekeeping-scan-failed", zap.Error(err))
		return
	}

	now := h.now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		day, compressed, ok := parseHistoryFilename(name)
		if !ok {
			continue
		}
		age := now.Sub(day)

		path := filepath.Join(h.dataDir, name)
		switch {
		case compressed && age >= h.archiveAfter:
			err = h.archive(path, name)
		case !compressed && age >= h.compressAfter:
			err = h.compress(path)
		default:
			continue
		}
		if err != nil {
			h.logger.Warn("history-housekeeping-failed",
				zap.String("file", name),
				zap.Error(err))
		}
	}
}

// parseHistoryFilename extracts the UTC day from
// spread_history_YYYY-MM-DD.csv or .csv.gz names.
func parseHistoryFilename(name string) (day time.Time, compressed bool, ok bool) {
	const prefix = "spread_history_"
	if !strings.HasPrefix(name, prefix) {
		return time.Time{}, false, false
	}
	rest := strings.TrimPrefix(name, prefix)

	switch {
	case strings.HasSuffix(rest, ".csv.gz"):
		compressed = true
		rest = strings.TrimSuffix(rest, ".csv.gz")
	case strings.HasSuffix(rest, ".csv"):
		rest = strings.TrimSuffix(rest, ".csv")
	default:
		return time.Time{}, false, false
	}

	day, err := time.Parse("2006-01-02", rest)
	if err != nil {
		return time.Time{}, false, false
	}
	return day, compressed, true
}

// compress gzips the file in place, then removes the original.
func (h *Housekeeper) compress(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return fmt.Errorf("create gzip: %w", err)
	}

	gz := gzip.NewWriter(dst)
	_, err = io.Copy(gz, src)
	if err != nil {
		_ = gz.Close()
		_ = dst.Close()
		return fmt.Errorf("compress: %w", err)
	}
	err = gz.Close()
	if err != nil {
		_ = dst.Close()
		return fmt.Errorf("finalize gzip: %w", err)
	}
	err = dst.Close()
	if err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}

	err = os.Remove(path)
	if err != nil {
		return fmt.Errorf("remove original: %w", err)
	}

	h.logger.Info("history-file-compressed", zap.String("file", filepath.Base(path)))
	return nil
}

// archive moves a gzipped file into the archive subdirectory.
func (h *Housekeeper) archive(path, name string) error {
	archiveDir := filepath.Join(h.dataDir, archiveDirName)
	err := os.MkdirAll(archiveDir, 0o755)
	if err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	err = os.Rename(path, filepath.Join(archiveDir, name))
	if err != nil {
		return fmt.Errorf("move to archive: %w", err)
	}

	h.logger.Info("history-file-archived", zap.String("file", name))
	return nil
}
