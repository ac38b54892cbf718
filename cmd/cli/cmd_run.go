package main

import (
	"context"
	"fmt"

	"ttindex/cmd"
	"ttindex/internal/app"
	"ttindex/internal/config"
	"ttindex/internal/domain"
	"ttindex/internal/logger"
	"ttindex/internal/report"
	"ttindex/internal/repository"
	l1_service "ttindex/internal/service/l1"
	l3_service "ttindex/internal/service/l3"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest and write the results",
	Long: `Run a backtest with the parameters of a YAML config file. Keys
missing from the file keep their defaults. Signals are recomputed from
the stored metrics with the configured signalExpression.

Examples:
  ttindex run
  ttindex run --config backtest.yaml --output results --save-status --save-target`,
	RunE: runBacktest,
}

var (
	runConfigPath string
	runOutputDir  string
	runSaveStatus bool
	runSaveTarget bool
	runQuiet      bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Backtest config file (default: built-in parameters)")
	runCmd.Flags().StringVar(&runOutputDir, "output", ".", "Directory for the result files")
	runCmd.Flags().BoolVar(&runSaveStatus, "save-status", false, "Also write every intermediate portfolio by status")
	runCmd.Flags().BoolVar(&runSaveTarget, "save-target", false, "Include initial and final targets in the rebalance report")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Do not log rebalance progress")
}

func runBacktest(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadBacktestConfig(runConfigPath)
	if err != nil {
		return err
	}
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	handler, err := cmd.NewApiHandler(env, cfg.Solver)
	if err != nil {
		return err
	}
	defer cmd.CloseDependencies(handler)

	start, end, err := cfg.Dates()
	if err != nil {
		return domain.ValidationError{Field: "dates", Msg: err.Error()}
	}
	frequency, err := app.NewRebalanceFrequency(cfg.RebalancingFrequency)
	if err != nil {
		return err
	}

	rows, err := handler.HistoricalMetricRepository.List(repository.HistoricalMetricListFilter{
		Projects:  cfg.ProjectsToInclude,
		StartDate: &start,
		EndDate:   end,
	})
	if err != nil {
		return fmt.Errorf("failed to load historical metrics: %w", err)
	}
	rows, err = l1_service.ApplySignalExpression(rows, cfg.SignalExpression)
	if err != nil {
		return err
	}

	profile, endProfile := domain.NewProfile()
	ctx := domain.ContextWithProfile(context.Background(), profile)
	backtestHandler := app.NewBacktestHandler(l1_service.NewWeightSolver(cfg.Solver))
	result, err := backtestHandler.Backtest(ctx, app.BacktestInput{
		NumProjects:          cfg.NumProjects,
		InitialInvestment:    cfg.InitialInvestment,
		MinCircMarketCap:     cfg.MinCircMarketCap,
		MinWeight:            cfg.MinWeight,
		MaxWeight:            cfg.MaxWeight,
		MaxChange:            cfg.MaxChange,
		StartDate:            start,
		EndDate:              end,
		Dataset:              domain.NewDataset(rows),
		ProjectsToInclude:    cfg.ProjectsToInclude,
		RebalancingFrequency: *frequency,
		Quiet:                runQuiet,
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	endProfile()

	paths, err := report.WriteOutputs(report.WriteOutputsInput{
		Dir:        runOutputDir,
		Snapshots:  result.Snapshots,
		SaveStatus: runSaveStatus,
		SaveTarget: runSaveTarget,
	})
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx).With("runID", result.RunID.String())
	for _, p := range paths {
		log.Infof("wrote %s", p)
	}
	if len(result.Settled()) > 1 {
		metrics, err := l3_service.CalculateMetrics(*result)
		if err != nil {
			return fmt.Errorf("failed to calculate metrics: %w", err)
		}
		log.Infow("backtest complete",
			"endValue", metrics.EndValue,
			"totalReturn", metrics.TotalReturn,
			"annualizedReturn", metrics.AnnualizedReturn,
			"sharpeRatio", metrics.SharpeRatio,
			"maxDrawdown", metrics.MaxDrawdown,
			"numRebalances", metrics.NumRebalances,
			"elapsedMs", *profile.TotalMs,
		)
	}

	return nil
}
