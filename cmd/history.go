package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/perp-arb-monitor/internal/history"
	"github.com/mselser95/perp-arb-monitor/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query sampled spread history",
	Long: `Queries the spread_history_sampled table and prints the matching
rows, newest first. Requires STORAGE_MODE=postgres.`,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("symbol", "", "Filter by canonical symbol (e.g. BTC-USDC-PERP)")
	historyCmd.Flags().Int("hours", 24, "Lookback window in hours")
	historyCmd.Flags().Int("limit", 50, "Maximum rows to print")
}

func runHistory(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StorageMode != "postgres" {
		return fmt.Errorf("history queries need STORAGE_MODE=postgres, got %q", cfg.StorageMode)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := history.NewPostgresStore(&history.PostgresConfig{
		DSN:    cfg.PostgresDSN(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("connect history store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	symbol, _ := cmd.Flags().GetString("symbol")
	hours, _ := cmd.Flags().GetInt("hours")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reader := history.NewReader(store.DB())

	var records []history.Record
	if symbol != "" {
		since := time.Now().Add(-time.Duration(hours) * time.Hour)
		records, err = reader.BySymbol(ctx, symbol, since, limit)
	} else {
		records, err = reader.Recent(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("no history rows match")
		return nil
	}

	fmt.Print(formatHistoryTable(records))

	return nil
}

func formatHistoryTable(records []history.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s  %-16s  %-10s  %-10s  %10s  %12s\n",
		"TIMESTAMP", "SYMBOL", "BUY", "SELL", "SPREAD%", "FUND-ANNUAL%")
	for _, rec := range records {
		fmt.Fprintf(&b, "%-20s  %-16s  %-10s  %-10s  %10.4f  %12.2f\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Symbol,
			rec.ExchangeBuy,
			rec.ExchangeSell,
			rec.SpreadPct,
			rec.FundingRateDiffAnnualPct)
	}
	return b.String()
}
