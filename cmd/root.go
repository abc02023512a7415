package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "perp-arb-monitor",
	Short: "Cross-venue perpetual futures arbitrage monitor",
	Long: `Real-time monitor for price and funding-rate arbitrage across
perpetual futures venues.

The monitor subscribes to each configured venue's market-data feed,
normalizes symbols to the canonical BASE-QUOTE-PERP form, computes
cross-venue spreads on every analysis tick and tracks opportunity
lifecycles. Sampled spread history is persisted to PostgreSQL or
per-day CSV files for later analysis.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
