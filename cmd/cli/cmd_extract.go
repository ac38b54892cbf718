package main

import (
	"fmt"

	"ttindex/cmd"
	"ttindex/internal"
	"ttindex/internal/config"
	"ttindex/internal/logger"
	"ttindex/internal/repository"
	"ttindex/pkg/tokenterminal"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Download daily project metrics from Token Terminal",
	Long: `Download the daily price, P/S and circulating market cap of every
project, derive the signal and store the rows. Rows go to the CSV file
given by --output, or to postgres when DATABASE_URL is set and no
--output is given. Requires TT_API_KEY.

The signal expression is --signal when given, otherwise the
signalExpression of the --config file.

Examples:
  ttindex extract --output historical_data.csv
  ttindex extract --config backtest.yaml --output historical_data.csv
  ttindex extract --projects aave,uniswap --signal "1 / ps"`,
	RunE: runExtract,
}

var (
	extractConfigPath string
	extractOutput     string
	extractProjectIDs []string
	extractSignal     string
)

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "Backtest config file providing signalExpression (default: built-in parameters)")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "CSV file to write (default: configured repository)")
	extractCmd.Flags().StringSliceVar(&extractProjectIDs, "projects", nil, "Project ids to extract (default: every listed project)")
	extractCmd.Flags().StringVar(&extractSignal, "signal", "", "Signal expression over the ratios (default: the config's signalExpression)")
}

func runExtract(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadBacktestConfig(extractConfigPath)
	if err != nil {
		return err
	}
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if env.TTApiKey == "" {
		return fmt.Errorf("TT_API_KEY is not set")
	}

	var historicalMetricRepository repository.HistoricalMetricRepository
	if extractOutput != "" {
		historicalMetricRepository = repository.NewHistoricalMetricCsvRepository(extractOutput)
	} else {
		repo, closeRepository, err := cmd.NewHistoricalMetricRepository(env)
		if err != nil {
			return err
		}
		if closeRepository != nil {
			defer closeRepository()
		}
		historicalMetricRepository = repo
	}

	numRows, err := internal.IngestHistoricalMetrics(internal.IngestHistoricalMetricsInput{
		Source:           tokenterminal.NewClient(env.TTApiKey),
		Repository:       historicalMetricRepository,
		SignalExpression: signalExpression(extractSignal, cfg),
		ProjectIDs:       extractProjectIDs,
	})
	if err != nil {
		return err
	}

	logger.Info("stored %d rows", numRows)
	return nil
}

// signalExpression picks the --signal flag over the config file.
func signalExpression(flag string, cfg *config.BacktestConfig) string {
	if flag != "" {
		return flag
	}
	return cfg.SignalExpression
}
