package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ttindex/internal/domain"
)

type CompositionEntry struct {
	Weight    float64  `json:"weight"`
	Tokens    float64  `json:"tokens"`
	Price     float64  `json:"price"`
	SP        *float64 `json:"sp"`
	Component string   `json:"component"`
	ID        string   `json:"id"`
}

type PortfolioSummary struct {
	Value       float64            `json:"value"`
	Composition []CompositionEntry `json:"composition"`
}

// ResultsByStatus keys every portfolio of a run by date and status.
type ResultsByStatus map[string]map[domain.Status]PortfolioSummary

func summarize(p domain.Portfolio) PortfolioSummary {
	out := PortfolioSummary{
		Value:       p.Value(),
		Composition: make([]CompositionEntry, 0, p.Len()),
	}
	for _, row := range p.Rows {
		out.Composition = append(out.Composition, CompositionEntry{
			Weight:    row.Weight,
			Tokens:    row.Tokens,
			Price:     row.Price,
			SP:        row.Signal,
			Component: row.Project,
			ID:        row.ProjectID,
		})
	}
	return out
}

// Results keeps the last portfolio of each day, which on rebalance
// days is the rebalanced one.
func Results(snapshots []domain.Snapshot) map[string]PortfolioSummary {
	out := map[string]PortfolioSummary{}
	for _, s := range snapshots {
		out[s.Portfolio.Date.Format(time.DateOnly)] = summarize(s.Portfolio)
	}
	return out
}

func NewResultsByStatus(snapshots []domain.Snapshot) ResultsByStatus {
	out := ResultsByStatus{}
	for _, s := range snapshots {
		date := s.Portfolio.Date.Format(time.DateOnly)
		if _, ok := out[date]; !ok {
			out[date] = map[domain.Status]PortfolioSummary{}
		}
		out[date][s.Status] = summarize(s.Portfolio)
	}
	return out
}

// ResultsJSON serializes a run, keeping intermediate portfolios and
// their statuses when saveStatus is set.
func ResultsJSON(snapshots []domain.Snapshot, saveStatus bool) ([]byte, error) {
	var data interface{} = Results(snapshots)
	if saveStatus {
		data = NewResultsByStatus(snapshots)
	}
	bytes, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	return bytes, nil
}

func WriteJSONFile(path string, v interface{}) error {
	bytes, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func ReadResultsByStatusFile(path string) (ResultsByStatus, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	out := ResultsByStatus{}
	if err := json.Unmarshal(bytes, &out); err != nil {
		return nil, fmt.Errorf("failed to parse results in %s: %w", path, err)
	}
	return out, nil
}
