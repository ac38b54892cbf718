package main

import (
	"os"

	"ttindex/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ttindex",
	Short: "Backtest a signal weighted crypto index on Token Terminal data",
	Long: `ttindex simulates a capped, signal weighted index of crypto projects
over historical daily metrics.

Examples:
  ttindex extract --output historical_data.csv
  ttindex run --config backtest.yaml --output results
  ttindex serve`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
