package main

import (
	"path/filepath"

	"ttindex/internal/logger"
	"ttindex/internal/report"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the rebalance report from saved results",
	Long: `Rebuild rebalances.json and rebalances.csv from the
results_status.json of an earlier run made with --save-status.

Examples:
  ttindex report --dir results --save-target`,
	RunE: runReport,
}

var (
	reportDir        string
	reportSaveTarget bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportDir, "dir", ".", "Directory holding results_status.json")
	reportCmd.Flags().BoolVar(&reportSaveTarget, "save-target", false, "Include initial and final targets")
}

func runReport(_ *cobra.Command, _ []string) error {
	byStatus, err := report.ReadResultsByStatusFile(filepath.Join(reportDir, report.ResultsByStatusFile))
	if err != nil {
		return err
	}
	paths, err := report.WriteRebalances(reportDir, byStatus, reportSaveTarget)
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Info("wrote %s", p)
	}
	return nil
}
