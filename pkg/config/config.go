package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mselser95/perp-arb-monitor/pkg/symbols"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel  string
	LogFormat string
	HTTPPort  string

	// Venues
	Exchanges         []string
	VenueWSURLs       map[string]string
	VenueSymbolStyles map[string]symbols.Style

	// Watch list of canonical symbols (BASE-QUOTE-PERP)
	Symbols []string

	// Analysis thresholds
	MinSpreadPct float64
	// MinFundingRateDiff is loaded for configuration parity but not yet
	// enforced: the finder keys on price spread only.
	MinFundingRateDiff float64

	// WebSocket
	WSDialTimeout          time.Duration
	WSPingInterval         time.Duration
	WSReconnectDelay       time.Duration
	WSMaxReconnectAttempts int

	// Pipeline queues
	OrderbookQueueSize int
	TickerQueueSize    int
	// AnalysisQueueSize is loaded for configuration parity but not yet
	// enforced: the display reads engine snapshots synchronously, so no
	// bounded hand-off queue sits between the analysis and display loops.
	AnalysisQueueSize int

	// Loop cadence
	AnalysisInterval  time.Duration
	UIRefreshInterval time.Duration

	// Quotes older than this are excluded from analysis.
	DataTimeout time.Duration

	// History recording
	HistoryEnabled         bool
	HistoryDataDir         string
	HistorySampleInterval  time.Duration
	HistoryStrategy        string // "max", "mean" or "latest"
	HistoryBatchSize       int
	HistoryBatchTimeout    time.Duration
	HistoryQueueMaxSize    int
	HistoryCSVEnabled      bool
	HistoryCompressAfter   int
	HistoryArchiveAfter    int
	HistoryCleanupInterval time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "console"),
		HTTPPort:  getEnvOrDefault("HTTP_PORT", "8080"),

		// Venue defaults
		Exchanges: getSliceOrDefault("EXCHANGES", []string{"lighter", "extended"}),
		Symbols: getSliceOrDefault("SYMBOLS", []string{
			"BTC-USDC-PERP",
			"ETH-USDC-PERP",
			"SOL-USDC-PERP",
		}),

		// Analysis defaults
		MinSpreadPct:       getFloat64OrDefault("MIN_SPREAD_PCT", 0.1),
		MinFundingRateDiff: getFloat64OrDefault("MIN_FUNDING_RATE_DIFF", 0.01),

		// WebSocket defaults
		WSDialTimeout:          getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPingInterval:         getDurationOrDefault("WS_PING_INTERVAL", 30*time.Second),
		WSReconnectDelay:       getDurationOrDefault("WS_RECONNECT_DELAY", 5*time.Second),
		WSMaxReconnectAttempts: getIntOrDefault("WS_MAX_RECONNECT_ATTEMPTS", 5),

		// Queue defaults
		OrderbookQueueSize: getIntOrDefault("ORDERBOOK_QUEUE_SIZE", 1000),
		TickerQueueSize:    getIntOrDefault("TICKER_QUEUE_SIZE", 500),
		AnalysisQueueSize:  getIntOrDefault("ANALYSIS_QUEUE_SIZE", 100),

		// Cadence defaults
		AnalysisInterval:  getDurationOrDefault("ANALYSIS_INTERVAL", 10*time.Millisecond),
		UIRefreshInterval: getDurationOrDefault("UI_REFRESH_INTERVAL", 1*time.Second),

		DataTimeout: getDurationOrDefault("DATA_TIMEOUT", 30*time.Second),

		// History defaults
		HistoryEnabled:         getBoolOrDefault("HISTORY_ENABLED", true),
		HistoryDataDir:         getEnvOrDefault("HISTORY_DATA_DIR", "data/spread_history"),
		HistorySampleInterval:  getDurationOrDefault("HISTORY_SAMPLE_INTERVAL", 60*time.Second),
		HistoryStrategy:        getEnvOrDefault("HISTORY_STRATEGY", "max"),
		HistoryBatchSize:       getIntOrDefault("HISTORY_BATCH_SIZE", 10),
		HistoryBatchTimeout:    getDurationOrDefault("HISTORY_BATCH_TIMEOUT", 60*time.Second),
		HistoryQueueMaxSize:    getIntOrDefault("HISTORY_QUEUE_MAXSIZE", 500),
		HistoryCSVEnabled:      getBoolOrDefault("HISTORY_CSV_ENABLED", false),
		HistoryCompressAfter:   getIntOrDefault("HISTORY_COMPRESS_AFTER_DAYS", 10),
		HistoryArchiveAfter:    getIntOrDefault("HISTORY_ARCHIVE_AFTER_DAYS", 30),
		HistoryCleanupInterval: getDurationOrDefault("HISTORY_CLEANUP_INTERVAL", 24*time.Hour),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "perparb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "perparb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "perp_arb_monitor"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	cfg.VenueWSURLs = make(map[string]string, len(cfg.Exchanges))
	cfg.VenueSymbolStyles = make(map[string]symbols.Style, len(cfg.Exchanges))
	for _, venue := range cfg.Exchanges {
		upper := strings.ToUpper(venue)
		cfg.VenueWSURLs[venue] = getEnvOrDefault("WS_URL_"+upper, "")
		cfg.VenueSymbolStyles[venue] = symbols.Style(getEnvOrDefault("SYMBOL_STYLE_"+upper, string(symbols.StyleBase)))
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// PostgresDSN returns the lib/pq connection string for the configured database.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if len(c.Exchanges) < 2 {
		return fmt.Errorf("EXCHANGES must name at least two venues, got %d", len(c.Exchanges))
	}

	if len(c.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS cannot be empty")
	}
	for _, s := range c.Symbols {
		if !symbols.IsCanonical(s) {
			return fmt.Errorf("symbol %q is not in BASE-QUOTE-PERP form", s)
		}
	}

	if c.MinSpreadPct < 0 {
		return fmt.Errorf("MIN_SPREAD_PCT must be non-negative, got %f", c.MinSpreadPct)
	}

	if c.AnalysisInterval <= 0 {
		return fmt.Errorf("ANALYSIS_INTERVAL must be positive, got %s", c.AnalysisInterval)
	}

	if c.HistoryStrategy != "max" && c.HistoryStrategy != "mean" && c.HistoryStrategy != "latest" {
		return fmt.Errorf("HISTORY_STRATEGY must be 'max', 'mean' or 'latest', got %q", c.HistoryStrategy)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	for _, venue := range c.Exchanges {
		style := c.VenueSymbolStyles[venue]
		if style != symbols.StyleBase && style != symbols.StyleBaseUSD && style != symbols.StyleCanonical {
			return fmt.Errorf("SYMBOL_STYLE_%s must be 'base', 'baseusd' or 'canonical', got %q",
				strings.ToUpper(venue), style)
		}
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}

	return out
}
