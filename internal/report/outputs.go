package report

import (
	"fmt"
	"os"
	"path/filepath"

	"ttindex/internal/domain"
)

const (
	ResultsFile         = "results.json"
	ResultsByStatusFile = "results_status.json"
	RebalancesFile      = "rebalances.json"
	RebalancesCsvFile   = "rebalances.csv"
)

type WriteOutputsInput struct {
	Dir        string
	Snapshots  []domain.Snapshot
	SaveStatus bool
	SaveTarget bool
}

// WriteOutputs writes the run results and the rebalance report into
// Dir and returns the paths it wrote. The status file is only kept
// when SaveStatus is set.
func WriteOutputs(in WriteOutputsInput) ([]string, error) {
	if err := os.MkdirAll(in.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", in.Dir, err)
	}
	written := []string{}

	resultsPath := filepath.Join(in.Dir, ResultsFile)
	if err := WriteJSONFile(resultsPath, Results(in.Snapshots)); err != nil {
		return nil, err
	}
	written = append(written, resultsPath)

	byStatus := NewResultsByStatus(in.Snapshots)
	if in.SaveStatus {
		statusPath := filepath.Join(in.Dir, ResultsByStatusFile)
		if err := WriteJSONFile(statusPath, byStatus); err != nil {
			return nil, err
		}
		written = append(written, statusPath)
	}

	paths, err := WriteRebalances(in.Dir, byStatus, in.SaveTarget)
	if err != nil {
		return nil, err
	}
	return append(written, paths...), nil
}

// WriteRebalances writes the rebalance report as json and csv.
func WriteRebalances(dir string, byStatus ResultsByStatus, saveTarget bool) ([]string, error) {
	rebalances, err := Rebalances(byStatus, saveTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize rebalances: %w", err)
	}

	jsonPath := filepath.Join(dir, RebalancesFile)
	if err := WriteJSONFile(jsonPath, rebalances); err != nil {
		return nil, err
	}

	csvPath := filepath.Join(dir, RebalancesCsvFile)
	f, err := os.Create(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", csvPath, err)
	}
	defer f.Close()
	if err := RebalancesCSV(rebalances, f); err != nil {
		return nil, err
	}

	return []string{jsonPath, csvPath}, nil
}
